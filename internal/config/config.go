// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// データバックエンドの種類
const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Supabase
	SupabaseURL       string `env:"SUPABASE_URL,required"`
	SupabaseAnonKey   string `env:"SUPABASE_ANON_KEY,required"`
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`

	// Data backend
	DataBackend string `env:"DATA_BACKEND" envDefault:"postgrest"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Session
	SessionStorePath     string        `env:"SESSION_STORE_PATH"`
	TokenRefreshInterval time.Duration `env:"TOKEN_REFRESH_INTERVAL" envDefault:"30s"`

	// OAuth
	OAuthProvider     string        `env:"OAUTH_PROVIDER" envDefault:"google"`
	OAuthRedirectURL  string        `env:"OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	OAuthPollAttempts int           `env:"OAUTH_POLL_ATTEMPTS" envDefault:"5"`
	OAuthPollInterval time.Duration `env:"OAUTH_POLL_INTERVAL" envDefault:"1s"`
	OpenBrowser       bool          `env:"OPEN_BROWSER" envDefault:"false"`

	// Payment
	UPIID               string        `env:"UPI_ID" envDefault:"courseaccess@oksbi"`
	UPIPayeeName        string        `env:"UPI_PAYEE_NAME" envDefault:"Course Access"`
	CardProcessingDelay time.Duration `env:"CARD_PROCESSING_DELAY" envDefault:"2s"`

	// Worker
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"1h"`

	// Rate Limit（認証エンドポイントの1分あたりのリクエスト数）
	RateLimitAuth int `env:"RATE_LIMIT_AUTH" envDefault:"10"`

	// Server
	ServerPort        string `env:"SERVER_PORT" envDefault:"8080"`
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:8081"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は.env（存在する場合）と環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定のものをまとめてエラーとして返す。
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		if missing := missingVars(err); len(missing) > 0 {
			return nil, fmt.Errorf("required environment variables are not set: %v", missing)
		}
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv は.envファイルを読み込む。既に設定済みの環境変数は上書きしない。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func missingVars(err error) []string {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return nil
	}
	var missing []string
	for _, e := range agg.Errors {
		var notSet env.EnvVarIsNotSetError
		if errors.As(e, &notSet) {
			missing = append(missing, notSet.Key)
		}
	}
	return missing
}

func (c *Config) validate() error {
	switch c.DataBackend {
	case BackendPostgREST:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATA_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("invalid DATA_BACKEND %q: must be %s or %s", c.DataBackend, BackendPostgREST, BackendPostgres)
	}
	if c.OAuthPollAttempts <= 0 {
		return fmt.Errorf("OAUTH_POLL_ATTEMPTS must be positive, got %d", c.OAuthPollAttempts)
	}
	if c.RateLimitAuth <= 0 {
		return fmt.Errorf("RATE_LIMIT_AUTH must be positive, got %d", c.RateLimitAuth)
	}
	return nil
}

// RequireDatabase はDATABASE_URLを必要とするサブコマンド（worker, migrate）用の検証。
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for this command")
	}
	return nil
}
