package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/learnhub/internal/auth"
	"github.com/hitoshi/learnhub/internal/course"
	"github.com/hitoshi/learnhub/internal/middleware"
	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/payment"
	"github.com/hitoshi/learnhub/internal/session"
)

// --- モック定義 ---

type mockSessions struct {
	state   session.State
	session *model.AuthSession
}

func (m *mockSessions) State() session.State { return m.state }
func (m *mockSessions) Session() *model.AuthSession { return m.session }

func signedIn(userID string) *mockSessions {
	return &mockSessions{
		state: session.StateAuthenticated,
		session: &model.AuthSession{
			AccessToken: "token",
			User:        model.Identity{ID: userID, Email: userID + "@example.com"},
		},
	}
}

type mockAuthService struct {
	loginFn    func(ctx context.Context, email, password string) (*auth.Result, error)
	signUpFn   func(ctx context.Context, in auth.SignUpInput) (*auth.SignUpOutcome, error)
	oauthFn    func(ctx context.Context, provider string) (*auth.Result, error)
	completeFn func(ctx context.Context, code string) (*model.AuthSession, error)
	logoutFn   func(ctx context.Context) error
}

func (m *mockAuthService) LoginWithPassword(ctx context.Context, email, password string) (*auth.Result, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) SignUp(ctx context.Context, in auth.SignUpInput) (*auth.SignUpOutcome, error) {
	return m.signUpFn(ctx, in)
}

func (m *mockAuthService) LoginWithOAuth(ctx context.Context, provider string) (*auth.Result, error) {
	return m.oauthFn(ctx, provider)
}

func (m *mockAuthService) CompleteOAuth(ctx context.Context, code string) (*model.AuthSession, error) {
	return m.completeFn(ctx, code)
}

func (m *mockAuthService) Logout(ctx context.Context) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

type mockCourseService struct {
	listFn    func(ctx context.Context) ([]model.Course, error)
	contentFn func(ctx context.Context, courseID int64) (*course.Detail, error)
	lessonFn  func(ctx context.Context, courseID, contentID int64) (*course.Lesson, error)
	articleFn func(ctx context.Context, courseID, contentID int64) (*course.Article, error)
	openFn    func(ctx context.Context, courseID, contentID int64) (string, error)
}

func (m *mockCourseService) List(ctx context.Context) ([]model.Course, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Course{}, nil
}

func (m *mockCourseService) Content(ctx context.Context, courseID int64) (*course.Detail, error) {
	return m.contentFn(ctx, courseID)
}

func (m *mockCourseService) Lesson(ctx context.Context, courseID, contentID int64) (*course.Lesson, error) {
	return m.lessonFn(ctx, courseID, contentID)
}

func (m *mockCourseService) ArticlePreview(ctx context.Context, courseID, contentID int64) (*course.Article, error) {
	return m.articleFn(ctx, courseID, contentID)
}

func (m *mockCourseService) OpenArticle(ctx context.Context, courseID, contentID int64) (string, error) {
	return m.openFn(ctx, courseID, contentID)
}

type mockPaymentService struct {
	cardFn   func(ctx context.Context, userID, planID string, card payment.Card) (*model.Subscription, error)
	upiFn    func(ctx context.Context, planID string) (string, error)
	activeFn func(ctx context.Context, userID string) (*model.Subscription, error)
}

func (m *mockPaymentService) PayWithCard(ctx context.Context, userID, planID string, card payment.Card) (*model.Subscription, error) {
	return m.cardFn(ctx, userID, planID, card)
}

func (m *mockPaymentService) UPILink(planID string) (string, error) {
	plan, err := payment.FindPlan(planID)
	if err != nil {
		return "", err
	}
	return payment.UPILink(payment.UPIConfig{PayeeID: "learnhub@oksbi", PayeeName: "Course Access"}, plan), nil
}

func (m *mockPaymentService) PayWithUPI(ctx context.Context, planID string) (string, error) {
	return m.upiFn(ctx, planID)
}

func (m *mockPaymentService) ActiveSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	return m.activeFn(ctx, userID)
}

type mockProfileService struct {
	getFn    func(ctx context.Context, userID string) (*model.Profile, error)
	updateFn func(ctx context.Context, userID, name string) (*model.Profile, error)
}

func (m *mockProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	return m.getFn(ctx, userID)
}

func (m *mockProfileService) UpdateDisplayName(ctx context.Context, userID, name string) (*model.Profile, error) {
	return m.updateFn(ctx, userID, name)
}

type mockEnsurer struct {
	ensureFn func(ctx context.Context, identity model.Identity) (*model.Profile, error)
}

func (m *mockEnsurer) EnsureProfile(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	if m.ensureFn != nil {
		return m.ensureFn(ctx, identity)
	}
	return &model.Profile{ID: identity.ID, FullName: "Test User", Email: identity.Email}, nil
}

// --- ヘルパー ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withUserID はテスト用にコンテキストへユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParams はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
