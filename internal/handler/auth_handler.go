package handler

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/learnhub/internal/auth"
	"github.com/hitoshi/learnhub/internal/middleware"
	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/session"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginWithPassword(ctx context.Context, email, password string) (*auth.Result, error)
	SignUp(ctx context.Context, in auth.SignUpInput) (*auth.SignUpOutcome, error)
	LoginWithOAuth(ctx context.Context, provider string) (*auth.Result, error)
	CompleteOAuth(ctx context.Context, code string) (*model.AuthSession, error)
	Logout(ctx context.Context) error
}

// SessionStateSource は現在の認証状態とセッションを返す。session.Managerが満たす。
type SessionStateSource interface {
	State() session.State
	Session() *model.AuthSession
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// DefaultProvider はリクエストでプロバイダーが省略された場合に使う（例: google）。
	DefaultProvider string
}

// AuthHandler はログイン・サインアップ・OAuthのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionStateSource
	config   AuthHandlerConfig
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, sessions SessionStateSource, config AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		config:   config,
		logger:   loggerOrDefault(logger),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthRequest struct {
	Provider string `json:"provider"`
}

// sessionResponse はログイン結果。トークン自体はUIシェルに返さない。
type sessionResponse struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"email"`
	ExpiresAt string         `json:"expires_at,omitempty"`
	Profile   *model.Profile `json:"profile,omitempty"`
}

type signUpResponse struct {
	UserID             string         `json:"user_id"`
	SessionEstablished bool           `json:"session_established"`
	Profile            *model.Profile `json:"profile,omitempty"`
	Message            string         `json:"message"`
}

type stateResponse struct {
	State  string `json:"state"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func toSessionResponse(res *auth.Result) sessionResponse {
	out := sessionResponse{Profile: res.Profile}
	if res.Session != nil {
		out.UserID = res.Session.User.ID
		out.Email = res.Session.User.Email
		if !res.Session.ExpiresAt.IsZero() {
			out.ExpiresAt = res.Session.ExpiresAt.UTC().Format(time.RFC3339)
		}
	}
	return out
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.LoginWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(res))
}

// SignUp はアカウントを作成する。
// メール確認が必要な設定ではセッションは確立されず、session_establishedがfalseになる。
// POST /api/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUpInput
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, signUpResponse{
		UserID:             out.Identity.ID,
		SessionEstablished: out.Session != nil,
		Profile:            out.Profile,
		Message:            out.Message,
	})
}

// OAuth は外部プロバイダーでのサインインを開始し、セッション確立まで待つ。
// POST /api/auth/oauth
func (h *AuthHandler) OAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	provider := req.Provider
	if provider == "" {
		provider = h.config.DefaultProvider
	}

	res, err := h.service.LoginWithOAuth(r.Context(), provider)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(res))
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>LearnHub</title></head>
<body><p>{{.}}</p></body></html>
`))

// Callback はOAuthプロバイダーからのリダイレクトを受け取り、認可コードをセッションに交換する。
// ブラウザに表示されるためHTMLで応答する。
// GET /auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if e := q.Get("error"); e != "" {
		h.logger.Warn("oauth provider returned error",
			slog.String("error", e),
			slog.String("description", q.Get("error_description")),
		)
		w.WriteHeader(http.StatusBadRequest)
		callbackPage.Execute(w, "Sign-in was cancelled. You can close this window.")
		return
	}

	if _, err := h.service.CompleteOAuth(r.Context(), q.Get("code")); err != nil {
		h.logger.Warn("oauth code exchange failed", slog.String("error", err.Error()))
		w.WriteHeader(middleware.StatusForCode(apiErrorCode(err)))
		callbackPage.Execute(w, "Sign-in failed. Return to the app and try again.")
		return
	}

	w.WriteHeader(http.StatusOK)
	callbackPage.Execute(w, "Sign-in complete. You can return to the app.")
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// State は現在の認証状態を返す。UIシェルの起動時の読み込み表示に使う。
// GET /api/auth/state
func (h *AuthHandler) State(w http.ResponseWriter, r *http.Request) {
	out := stateResponse{State: h.sessions.State().String()}
	if s := h.sessions.Session(); s != nil {
		out.UserID = s.User.ID
		out.Email = s.User.Email
	}
	writeJSON(w, http.StatusOK, out)
}

func apiErrorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
