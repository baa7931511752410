package supabase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/learnhub/internal/model"
)

// defaultRefreshMargin はアクセストークン失効の何秒前に更新するか。
const defaultRefreshMargin = 60 * time.Second

// OAuthOptions はOAuthサインイン開始時のオプション。
type OAuthOptions struct {
	RedirectTo  string
	Scopes      string
	QueryParams map[string]string
}

// OAuthStart はOAuthフロー開始の結果。ブラウザでURLを開くとプロバイダーの認可画面に遷移する。
// トークン交換はプロセス外（リダイレクト受信側）で行われる。
type OAuthStart struct {
	Provider string
	URL      string
}

// SignUpResult はサインアップの結果。
// メール確認が必要なプロジェクトではSessionはnilになる。
type SignUpResult struct {
	User    model.Identity
	Session *model.AuthSession
}

// AuthClient はGoTrue（/auth/v1）のクライアント。
// セッションはSessionStorageに永続化し、状態変化をリスナーに通知する。
type AuthClient struct {
	client    *Client
	storage   SessionStorage
	jwtSecret string
	margin    time.Duration
	now       func() time.Time

	mu        sync.Mutex
	listeners map[int]model.AuthStateListener
	nextID    int
	verifier  string // 進行中のOAuthフローのPKCE code_verifier
	refreshMu sync.Mutex
}

// NewAuthClient はAuthClientを生成する。
func NewAuthClient(client *Client, storage SessionStorage, jwtSecret string) *AuthClient {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &AuthClient{
		client:    client,
		storage:   storage,
		jwtSecret: jwtSecret,
		margin:    defaultRefreshMargin,
		now:       time.Now,
		listeners: make(map[int]model.AuthStateListener),
	}
}

// tokenResponse は/token・/signupのレスポンス。
// signupでメール確認が必要な場合はトークンが無く、ユーザー項目がトップレベルに来る。
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`

	userResponse
}

// userResponse はGoTrueのユーザーオブジェクト。
type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

func (u *userResponse) identity() model.Identity {
	provider := ""
	if p, ok := u.AppMetadata["provider"].(string); ok {
		provider = p
	}
	return model.Identity{
		ID:       u.ID,
		Email:    u.Email,
		Provider: provider,
		Metadata: u.UserMetadata,
	}
}

// OnAuthStateChange は認証状態変化のリスナーを登録し、解除関数を返す。
// 解除関数は何度呼んでもよい。
func (a *AuthClient) OnAuthStateChange(listener model.AuthStateListener) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = listener
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// emit は登録順にリスナーへ通知する。ロック外で呼び出す。
func (a *AuthClient) emit(event model.AuthEvent, session *model.AuthSession) {
	a.mu.Lock()
	ids := make([]int, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]model.AuthStateListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, a.listeners[id])
	}
	a.mu.Unlock()

	for _, l := range listeners {
		l(event, session)
	}
}

// GetSession は現在の有効なセッションを返す。セッションが無い場合は(nil, nil)。
// 失効間近の場合はリフレッシュを試み、リフレッシュが拒否された場合は
// 保存済みセッションを削除してSIGNED_OUTを通知する。
func (a *AuthClient) GetSession(ctx context.Context) (*model.AuthSession, error) {
	session := a.storage.Load()
	if session == nil {
		return nil, nil
	}
	if !session.Expired(a.now(), a.margin) {
		return session, nil
	}
	return a.refresh(ctx, session)
}

// RefreshSession は保存済みセッションを強制的にリフレッシュする。
func (a *AuthClient) RefreshSession(ctx context.Context) (*model.AuthSession, error) {
	session := a.storage.Load()
	if session == nil {
		return nil, nil
	}
	return a.refresh(ctx, session)
}

func (a *AuthClient) refresh(ctx context.Context, session *model.AuthSession) (*model.AuthSession, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// 待機中に別の呼び出しが更新済みの場合はそれを使う
	if current := a.storage.Load(); current != nil && current.AccessToken != session.AccessToken {
		return current, nil
	}

	if session.RefreshToken == "" {
		a.signOutLocal()
		return nil, nil
	}

	var tr tokenResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=refresh_token",
		body:   map[string]string{"refresh_token": session.RefreshToken},
	}, &tr)
	if err != nil {
		if model.IsTransport(err) {
			return nil, err
		}
		a.client.logger.Warn("token refresh rejected, signing out",
			slog.String("user_id", session.User.ID),
			slog.String("error", err.Error()),
		)
		a.signOutLocal()
		return nil, nil
	}

	refreshed, err := a.sessionFromToken(&tr)
	if err != nil {
		return nil, err
	}
	a.storage.Save(refreshed)
	a.emit(model.AuthEventTokenRefreshed, refreshed)
	return refreshed, nil
}

// SignInWithPassword はメールアドレスとパスワードでサインインする。
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*model.AuthSession, error) {
	var tr tokenResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=password",
		body:   map[string]string{"email": email, "password": password},
	}, &tr)
	if err != nil {
		return nil, err
	}
	return a.establish(&tr)
}

// SignUp は新しいユーザーを登録する。metadataはuser_metadataとして保存される。
func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	var tr tokenResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    email,
			"password": password,
			"data":     metadata,
		},
	}, &tr)
	if err != nil {
		return nil, err
	}

	if tr.AccessToken != "" {
		session, err := a.establish(&tr)
		if err != nil {
			return nil, err
		}
		return &SignUpResult{User: session.User, Session: session}, nil
	}

	user := tr.userResponse
	if tr.User != nil {
		user = *tr.User
	}
	if user.ID == "" {
		return nil, fmt.Errorf("signup response contains no user")
	}
	return &SignUpResult{User: user.identity()}, nil
}

// SignInWithOAuth はPKCEフローのOAuthサインインを開始し、認可URLを返す。
// 実際のトークン交換はリダイレクト先でExchangeCodeForSessionを呼んだ時点で行われる。
func (a *AuthClient) SignInWithOAuth(_ context.Context, provider string, opts OAuthOptions) (*OAuthStart, error) {
	if provider == "" {
		return nil, fmt.Errorf("oauth provider is required")
	}

	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	params := url.Values{
		"provider":              {provider},
		"code_challenge":        {codeChallenge(verifier)},
		"code_challenge_method": {"s256"},
	}
	if opts.RedirectTo != "" {
		params.Set("redirect_to", opts.RedirectTo)
	}
	if opts.Scopes != "" {
		params.Set("scopes", opts.Scopes)
	}
	for k, v := range opts.QueryParams {
		params.Set(k, v)
	}

	a.mu.Lock()
	a.verifier = verifier
	a.mu.Unlock()

	return &OAuthStart{
		Provider: provider,
		URL:      a.client.baseURL + "/auth/v1/authorize?" + params.Encode(),
	}, nil
}

// ExchangeCodeForSession はOAuthリダイレクトで受け取った認可コードをセッションに交換する。
func (a *AuthClient) ExchangeCodeForSession(ctx context.Context, authCode string) (*model.AuthSession, error) {
	a.mu.Lock()
	verifier := a.verifier
	a.mu.Unlock()
	if verifier == "" {
		return nil, model.NewAuthError("No sign-in is in progress.", fmt.Errorf("missing pkce code verifier"))
	}

	var tr tokenResponse
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token?grant_type=pkce",
		body:   map[string]string{"auth_code": authCode, "code_verifier": verifier},
	}, &tr)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.verifier = ""
	a.mu.Unlock()

	return a.establish(&tr)
}

// GetUser はサーバーに問い合わせて現在のユーザーを取得する。
func (a *AuthClient) GetUser(ctx context.Context) (*model.Identity, error) {
	session, err := a.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	var u userResponse
	err = a.client.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		bearer: session.AccessToken,
	}, &u)
	if err != nil {
		return nil, err
	}
	identity := u.identity()
	return &identity, nil
}

// SignOut はサーバー側のセッションを無効化し、ローカルのセッションを削除する。
// サーバー呼び出しに失敗してもローカルのセッションは必ず削除する。
func (a *AuthClient) SignOut(ctx context.Context) error {
	session := a.storage.Load()
	if session != nil {
		err := a.client.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			bearer: session.AccessToken,
		}, nil)
		if err != nil {
			a.client.logger.Warn("remote sign out failed",
				slog.String("user_id", session.User.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	a.signOutLocal()
	return nil
}

// AccessToken はPostgREST呼び出し用のアクセストークンを返す。未ログインの場合は空文字列。
func (a *AuthClient) AccessToken(ctx context.Context) (string, error) {
	session, err := a.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}
	return session.AccessToken, nil
}

// StartAutoRefresh はintervalごとにトークンの失効を確認し、必要ならリフレッシュする。
// ctxがキャンセルされるまでブロックする。
func (a *AuthClient) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.GetSession(ctx); err != nil {
				a.client.logger.Warn("auto refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// establish はトークンレスポンスからセッションを作成・保存し、SIGNED_INを通知する。
func (a *AuthClient) establish(tr *tokenResponse) (*model.AuthSession, error) {
	session, err := a.sessionFromToken(tr)
	if err != nil {
		return nil, err
	}
	a.storage.Save(session)
	a.emit(model.AuthEventSignedIn, session)
	return session, nil
}

func (a *AuthClient) signOutLocal() {
	a.storage.Remove()
	a.emit(model.AuthEventSignedOut, nil)
}

// sessionFromToken はトークンレスポンスをAuthSessionに変換する。
// ユーザー情報がレスポンスに無い場合はアクセストークンのクレームから補う。
func (a *AuthClient) sessionFromToken(tr *tokenResponse) (*model.AuthSession, error) {
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	session := &model.AuthSession{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}

	switch {
	case tr.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		session.ExpiresAt = a.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if tr.User != nil && tr.User.ID != "" {
		session.User = tr.User.identity()
		return session, nil
	}

	claims, err := ParseAccessToken(tr.AccessToken, a.jwtSecret)
	if err != nil {
		return nil, err
	}
	session.User = claims.Identity()
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = claims.Expiry()
	}
	return session, nil
}

// generateCodeVerifier はPKCEのcode_verifier（43文字以上のURLセーフ文字列）を生成する。
func generateCodeVerifier() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// codeChallenge はS256方式のcode_challengeを計算する。
func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
