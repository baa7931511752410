// Package supabase はホスト型バックエンド（GoTrue認証 + PostgREST）へのHTTPクライアントを提供する。
//
// 認証状態（セッション）の永続化とトークン更新はこのパッケージが担い、
// 上位層はAuthClientとテーブル単位のリポジトリ実装のみを利用する。
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/learnhub/internal/model"
)

// maxResponseSize はレスポンスボディの読み込み上限（1MB）。
const maxResponseSize = 1 << 20

// Config はバックエンド接続の設定。
type Config struct {
	URL       string // プロジェクトURL（例: https://xyz.supabase.co）
	AnonKey   string // 匿名キー（apikeyヘッダー）
	JWTSecret string // アクセストークン検証用のHS256シークレット（任意）

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client はGoTrueとPostgRESTで共有する低レベルHTTPクライアント。
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient はClientを生成する。
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		http:    httpClient,
		logger:  logger,
	}
}

// request は1回のHTTP呼び出しの内容を表す。
type request struct {
	method  string
	path    string // /auth/v1/... や /rest/v1/... （クエリ含む）
	body    any
	bearer  string // 空の場合はanonキーを使う
	headers map[string]string
}

// do はリクエストを送信し、2xxの場合はoutにJSONをデコードする。
// 通信失敗はTRANSPORT_ERROR、非2xxはBackendErrorとして返す。
func (c *Client) do(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	bearer := r.bearer
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewTransportError(fmt.Errorf("%s %s: %w", r.method, r.path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return model.NewTransportError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		berr := decodeBackendError(resp.StatusCode, data)
		c.logger.Debug("backend request failed",
			slog.String("method", r.method),
			slog.String("path", r.path),
			slog.Int("status", resp.StatusCode),
			slog.String("code", berr.Code),
		)
		if resp.StatusCode >= 500 {
			return model.NewTransportError(berr)
		}
		return berr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorBody はPostgRESTとGoTrueの両方のエラーフォーマットを受け取る。
//
//	PostgREST: {"code":"PGRST116","message":"...","details":"...","hint":null}
//	GoTrue:    {"code":400,"error_code":"invalid_credentials","msg":"..."}
//	OAuth系:   {"error":"invalid_grant","error_description":"..."}
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// decodeBackendError はエラーレスポンスをBackendErrorに変換する。
func decodeBackendError(status int, data []byte) *model.BackendError {
	be := &model.BackendError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		be.Message = strings.TrimSpace(string(data))
		if be.Message == "" {
			be.Message = http.StatusText(status)
		}
		return be
	}

	// codeは文字列（PostgREST）または数値（GoTrue）
	var code string
	if err := json.Unmarshal(eb.Code, &code); err != nil {
		code = ""
	}
	switch {
	case eb.ErrorCode != "":
		be.Code = eb.ErrorCode
	case code != "":
		be.Code = code
	case eb.Error != "":
		be.Code = eb.Error
	}

	for _, m := range []string{eb.Message, eb.Msg, eb.ErrorDescription, eb.Error} {
		if m != "" {
			be.Message = m
			break
		}
	}
	if be.Message == "" {
		be.Message = http.StatusText(status)
	}
	be.Details = eb.Details
	be.Hint = eb.Hint
	return be
}

// PingContext はGoTrueのヘルスエンドポイントで疎通を確認する。
func (c *Client) PingContext(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/health"}, nil)
}
