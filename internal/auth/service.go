// Package auth はログイン・サインアップ・OAuthの各フローを提供する。
// 成功したフローはすべてプロフィールの確保（create-if-missing）で終わる。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/learnhub/internal/browser"
	"github.com/hitoshi/learnhub/internal/metrics"
	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/supabase"
)

// ログイン方式（メトリクスのラベル）
const (
	MethodPassword = "password"
	MethodOAuth    = "oauth"
	MethodSignUp   = "signup"
)

// Backend は認証バックエンド（GoTrue）の操作。supabase.AuthClientが実装する。
type Backend interface {
	GetSession(ctx context.Context) (*model.AuthSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*model.AuthSession, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*supabase.SignUpResult, error)
	SignInWithOAuth(ctx context.Context, provider string, opts supabase.OAuthOptions) (*supabase.OAuthStart, error)
	ExchangeCodeForSession(ctx context.Context, authCode string) (*model.AuthSession, error)
	GetUser(ctx context.Context) (*model.Identity, error)
	SignOut(ctx context.Context) error
}

// ProfileEnsurer はidentityに対応するプロフィールを確保する。
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, identity model.Identity) (*model.Profile, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	OAuthRedirectURL string // OAuth完了後のリダイレクト先（/auth/callback）
	Poll             PollConfig
}

// Result はログイン成功時の結果。
type Result struct {
	Session *model.AuthSession
	Profile *model.Profile
}

// SignUpOutcome はサインアップの結果。
// メール確認が必要な構成ではSessionがnilになる。
type SignUpOutcome struct {
	Identity model.Identity
	Session  *model.AuthSession
	Profile  *model.Profile
	Message  string
}

// signUpMessage はサインアップ成功時にユーザーへ表示するメッセージ。
const signUpMessage = "Account created successfully! Please verify your email."

// Service は認証フローのビジネスロジックを提供する。
type Service struct {
	backend  Backend
	profiles ProfileEnsurer
	opener   browser.Opener
	metrics  metrics.MetricsCollector
	config   ServiceConfig
	logger   *slog.Logger
}

// NewService はServiceを生成する。metrics・loggerはnilでもよい。
func NewService(
	backend Backend,
	profiles ProfileEnsurer,
	opener browser.Opener,
	m metrics.MetricsCollector,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opener == nil {
		opener = browser.NewLogOpener(logger)
	}
	return &Service{
		backend:  backend,
		profiles: profiles,
		opener:   opener,
		metrics:  m,
		config:   config,
		logger:   logger,
	}
}

// LoginWithPassword はメールアドレスとパスワードでログインし、プロフィールを確保する。
func (s *Service) LoginWithPassword(ctx context.Context, email, password string) (*Result, error) {
	if err := ValidateLogin(email, password); err != nil {
		s.metrics.RecordLogin(MethodPassword, "invalid")
		return nil, err
	}

	session, err := s.backend.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.metrics.RecordLogin(MethodPassword, "rejected")
		s.logger.Warn("password login failed", slog.String("error", err.Error()))
		return nil, mapBackendError(err, "Invalid email or password.")
	}

	return s.finish(ctx, MethodPassword, session, session.User)
}

// SignUp は新規登録を行う。identityが返された場合はプロフィールも確保する。
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*SignUpOutcome, error) {
	if err := ValidateSignUp(in); err != nil {
		s.metrics.RecordLogin(MethodSignUp, "invalid")
		return nil, err
	}

	fullName := strings.TrimSpace(in.FullName)
	res, err := s.backend.SignUp(ctx, strings.TrimSpace(in.Email), in.Password, map[string]any{
		"full_name": fullName,
	})
	if err != nil {
		s.metrics.RecordLogin(MethodSignUp, "rejected")
		s.logger.Warn("signup failed", slog.String("error", err.Error()))
		return nil, mapBackendError(err, "Failed to create account.")
	}

	out := &SignUpOutcome{Identity: res.User, Session: res.Session, Message: signUpMessage}
	if res.User.ID == "" {
		s.metrics.RecordLogin(MethodSignUp, "success")
		return out, nil
	}

	profile, err := s.profiles.EnsureProfile(ctx, res.User)
	if err != nil {
		if res.Session != nil {
			s.metrics.RecordLogin(MethodSignUp, "profile_failed")
			return nil, err
		}
		// メール確認待ちでは行を書けない場合がある。初回ログイン時に作成される。
		s.logger.Warn("profile creation deferred until first login",
			slog.String("user_id", res.User.ID),
			slog.String("error", err.Error()),
		)
	}
	out.Profile = profile

	s.logger.Info("user signed up", slog.String("user_id", res.User.ID))
	s.metrics.RecordLogin(MethodSignUp, "success")
	return out, nil
}

// LoginWithOAuth はOAuthログインを開始し、セッションが確立されるのを待つ。
//
// 既存のセッションがあれば先にサインアウトする。既存セッションの確認に失敗しても
// ログに残してそのまま開始する。認可URLをOpenerに渡した後、
// リダイレクト受信側（CompleteOAuth）がセッションを保存するまでポーリングする。
// 回数を使い切った場合はSESSION_ESTABLISHMENT_TIMEOUTを返し、プロフィールには触れない。
func (s *Service) LoginWithOAuth(ctx context.Context, provider string) (*Result, error) {
	existing, err := s.backend.GetSession(ctx)
	if err != nil {
		s.logger.Warn("failed to check existing session", slog.String("error", err.Error()))
	} else if existing != nil {
		if err := s.backend.SignOut(ctx); err != nil {
			s.logger.Warn("failed to clear previous session", slog.String("error", err.Error()))
		}
	}

	start, err := s.backend.SignInWithOAuth(ctx, provider, supabase.OAuthOptions{
		RedirectTo: s.config.OAuthRedirectURL,
		QueryParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
	})
	if err != nil {
		s.metrics.RecordLogin(MethodOAuth, "rejected")
		return nil, mapBackendError(err, "Failed to start sign-in.")
	}

	if err := s.opener.Open(ctx, start.URL); err != nil {
		s.metrics.RecordLogin(MethodOAuth, "rejected")
		return nil, model.NewAuthError("Could not open the sign-in page.", err)
	}

	session, attempts, err := WaitForSession(ctx, s.backend, s.config.Poll)
	s.metrics.RecordSessionPoll(attempts, session != nil)
	if err != nil {
		s.metrics.RecordLogin(MethodOAuth, "timeout")
		s.logger.Warn("oauth session not established",
			slog.String("provider", provider),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
		return nil, mapBackendError(err, "Failed to establish session")
	}

	identity, err := s.backend.GetUser(ctx)
	if err != nil {
		s.metrics.RecordLogin(MethodOAuth, "rejected")
		return nil, mapBackendError(err, "No user data available")
	}

	return s.finish(ctx, MethodOAuth, session, *identity)
}

// CompleteOAuth はOAuthリダイレクトで受け取った認可コードをセッションに交換する。
// 交換に成功するとLoginWithOAuthのポーリングがセッションを観測する。
func (s *Service) CompleteOAuth(ctx context.Context, code string) (*model.AuthSession, error) {
	if strings.TrimSpace(code) == "" {
		return nil, model.NewValidationError("code", "Missing authorization code.")
	}
	session, err := s.backend.ExchangeCodeForSession(ctx, code)
	if err != nil {
		s.logger.Warn("oauth code exchange failed", slog.String("error", err.Error()))
		return nil, mapBackendError(err, "Failed to complete sign-in.")
	}
	s.logger.Info("oauth code exchanged", slog.String("user_id", session.User.ID))
	return session, nil
}

// Logout はサインアウトする。ローカルのセッションは常に削除される。
func (s *Service) Logout(ctx context.Context) error {
	if err := s.backend.SignOut(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// finish はプロフィールを確保してログインを完了する。
func (s *Service) finish(ctx context.Context, method string, session *model.AuthSession, identity model.Identity) (*Result, error) {
	profile, err := s.profiles.EnsureProfile(ctx, identity)
	if err != nil {
		s.metrics.RecordLogin(method, "profile_failed")
		return nil, err
	}
	s.logger.Info("user logged in",
		slog.String("user_id", identity.ID),
		slog.String("method", method),
	)
	s.metrics.RecordLogin(method, "success")
	return &Result{Session: session, Profile: profile}, nil
}

// mapBackendError は認証バックエンドのエラーをユーザー向けのエラーに変換する。
// 分類済みのAPIErrorはそのまま返す。
func mapBackendError(err error, fallback string) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	var be *model.BackendError
	if !errors.As(err, &be) {
		return model.NewAuthError(fallback, err)
	}
	switch {
	case be.Code == "user_already_exists" || be.Code == "email_exists",
		strings.Contains(strings.ToLower(be.Message), "already registered"):
		return model.NewEmailAlreadyRegisteredError(err)
	case be.Message != "":
		return model.NewAuthError(be.Message, err)
	default:
		return model.NewAuthError(fallback, err)
	}
}
