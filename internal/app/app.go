package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/learnhub/internal/auth"
	"github.com/hitoshi/learnhub/internal/browser"
	"github.com/hitoshi/learnhub/internal/config"
	"github.com/hitoshi/learnhub/internal/course"
	"github.com/hitoshi/learnhub/internal/database"
	"github.com/hitoshi/learnhub/internal/handler"
	"github.com/hitoshi/learnhub/internal/logger"
	"github.com/hitoshi/learnhub/internal/metrics"
	"github.com/hitoshi/learnhub/internal/middleware"
	"github.com/hitoshi/learnhub/internal/payment"
	"github.com/hitoshi/learnhub/internal/profile"
	"github.com/hitoshi/learnhub/internal/repository"
	"github.com/hitoshi/learnhub/internal/security"
	"github.com/hitoshi/learnhub/internal/session"
	"github.com/hitoshi/learnhub/internal/supabase"
	"github.com/hitoshi/learnhub/internal/worker/expiry"
)

// Init はアプリケーションの初期化を行う。
// 設定読み込み前にINFOレベルでログを使えるようにし、読み込み後にLOG_LEVELで再設定する。
// writerがnilの場合は標準出力に出力する。
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("data_backend", cfg.DataBackend),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, ParseMigrateAction(args))
	default:
		return runServe(cfg)
	}
}

// server はserveモードで組み立てた依存関係一式。
type server struct {
	handler     http.Handler
	sessions    *session.Manager
	authClient  *supabase.AuthClient
	rateLimiter *middleware.RateLimiter
	closers     []func() error
}

// Close は保持しているリソースを解放する。
func (s *server) Close() error {
	s.rateLimiter.Stop()
	s.sessions.Dispose()
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// dataStores はデータバックエンドごとのリポジトリ実装。
type dataStores struct {
	profiles      repository.ProfileRepository
	subscriptions repository.SubscriptionRepository
	courses       repository.CourseRepository
	health        handler.HealthChecker
	db            *sql.DB
}

// openDataStores はDATA_BACKENDに応じてリポジトリを構築する。
// postgrestの場合はユーザーのアクセストークンでRLS越しに、postgresの場合は直接接続する。
func openDataStores(ctx context.Context, cfg *config.Config, client *supabase.Client, tokens supabase.TokenSource) (*dataStores, error) {
	if cfg.DataBackend != config.BackendPostgres {
		return &dataStores{
			profiles:      supabase.NewProfileTable(client, tokens),
			subscriptions: supabase.NewSubscriptionTable(client, tokens),
			courses:       supabase.NewCourseTable(client, tokens),
			health:        client,
		}, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	return &dataStores{
		profiles:      repository.NewPostgresProfileRepo(db),
		subscriptions: repository.NewPostgresSubscriptionRepo(db),
		courses:       repository.NewPostgresCourseRepo(db),
		health:        db,
		db:            db,
	}, nil
}

// newServer は全依存関係をワイヤリングし、セッション状態を初期化する。
// regにはアプリケーションのメトリクスを登録する。
func newServer(ctx context.Context, cfg *config.Config, reg *prometheus.Registry, log *slog.Logger) (*server, error) {
	collector := metrics.NewCollector(reg)

	// 1. 認証バックエンド
	client := supabase.NewClient(supabase.Config{
		URL:       cfg.SupabaseURL,
		AnonKey:   cfg.SupabaseAnonKey,
		JWTSecret: cfg.SupabaseJWTSecret,
		Logger:    log,
	})
	var storage supabase.SessionStorage = supabase.NewMemoryStorage()
	if cfg.SessionStorePath != "" {
		storage = supabase.NewFileStorage(cfg.SessionStorePath, log)
	}
	authClient := supabase.NewAuthClient(client, storage, cfg.SupabaseJWTSecret)

	// 2. データストア
	stores, err := openDataStores(ctx, cfg, client, authClient)
	if err != nil {
		return nil, err
	}
	srv := &server{authClient: authClient}
	if stores.db != nil {
		srv.closers = append(srv.closers, stores.db.Close)
	}

	// 3. セッション状態
	sessions := session.NewManager(authClient, log)
	sessions.Subscribe(func(t session.Transition) {
		collector.RecordSessionTransition(t.From.String(), t.To.String())
	})
	state := sessions.Init(ctx)
	log.Info("session state initialized", slog.String("state", state.String()))
	srv.sessions = sessions

	// 4. ドメインサービス
	var opener browser.Opener = browser.NewLogOpener(log)
	if cfg.OpenBrowser {
		opener = browser.NewSystemOpener(log)
	}
	sanitizer := security.NewNameSanitizer()
	bootstrapper := profile.NewBootstrapper(stores.profiles, sanitizer, collector, log)
	profileService := profile.NewService(stores.profiles, sanitizer, log)

	authService := auth.NewService(authClient, bootstrapper, opener, collector, auth.ServiceConfig{
		OAuthRedirectURL: cfg.OAuthRedirectURL,
		Poll: auth.PollConfig{
			Attempts: cfg.OAuthPollAttempts,
			Interval: cfg.OAuthPollInterval,
		},
	}, log)

	courseService := course.NewService(stores.courses, security.NewLinkGuard(), opener, log)

	paymentService := payment.NewService(
		stores.subscriptions,
		payment.SimulatedProcessor{Delay: cfg.CardProcessingDelay},
		opener,
		payment.UPIConfig{PayeeID: cfg.UPIID, PayeeName: cfg.UPIPayeeName},
		collector, log,
	)

	// 5. ルーター
	srv.rateLimiter = middleware.NewRateLimiter(middleware.AuthRateLimiterConfig(cfg.RateLimitAuth), log)

	srv.handler = handler.NewRouter(&handler.RouterDeps{
		Sessions:          sessions,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		AuthRateLimiter:   srv.rateLimiter,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		HealthChecker:     stores.health,
		Logger:            log,

		AuthService: authService,
		AuthConfig:  handler.AuthHandlerConfig{DefaultProvider: cfg.OAuthProvider},

		ProfileEnsurer: bootstrapper,
		ProfileService: profileService,

		CourseService: courseService,

		PaymentService: paymentService,
	})

	return srv, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := newServer(ctx, cfg, reg, slog.Default())
	if err != nil {
		return err
	}
	defer srv.Close()

	// トークンの自動リフレッシュ
	go srv.authClient.StartAutoRefresh(ctx, cfg.TokenRefreshInterval)

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れ購読の失効ジョブを定期実行する。PostgreSQLへの直接接続が必要。
func runWorker(cfg *config.Config) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	job := expiry.NewJob(
		repository.NewPostgresSubscriptionRepo(db),
		metrics.NewCollector(prometheus.NewRegistry()),
		slog.Default(),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("expiry_interval", cfg.ExpirySweepInterval),
	)

	// 失効ジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.ExpirySweepInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, action MigrateAction) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("rolled back one migration")
	case MigrateVersion:
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("current migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
