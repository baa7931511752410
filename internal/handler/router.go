package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/learnhub/internal/metrics"
	"github.com/hitoshi/learnhub/internal/middleware"
)

// ScreenPaths はルートガードを適用する画面ルート。
// アプリの画面レイアウト（profile/profile、course/play など）と短縮形の両方を受け付ける。
var ScreenPaths = []string{
	"/",
	"/auth/login",
	"/auth/signup",
	"/course/dashboard",
	"/course/courses",
	"/course/play",
	"/course/{courseID}",
	"/payment",
	"/payment/payment",
	"/profile",
	"/profile/profile",
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Sessions          SessionStateSource
	CORSAllowedOrigin string
	AuthRateLimiter   *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ダッシュボード・プロフィール
	ProfileEnsurer ProfileEnsurer
	ProfileService ProfileServiceInterface

	// コース
	CourseService CourseServiceInterface

	// 決済
	PaymentService PaymentServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// 画面ルートにはRouteGuard、/api配下の保護ルートにはSessionを重ねる。
// ログイン・サインアップ・OAuth開始は送信元ごとのレート制限を受ける。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := loggerOrDefault(deps.Logger)
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(m))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.AuthConfig, logger)
	dashboardHandler := NewDashboardHandler(deps.Sessions, deps.ProfileEnsurer, deps.CourseService, logger)
	courseHandler := NewCourseHandler(deps.CourseService, logger)
	paymentHandler := NewPaymentHandler(deps.PaymentService, logger)
	profileHandler := NewProfileHandler(deps.ProfileService, logger)
	screenHandler := NewScreenHandler(deps.Sessions)

	// --- 運用 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// OAuthリダイレクトの受け口。ブラウザから届くためガードの外に置く。
	r.Get("/auth/callback", authHandler.Callback)

	// --- 画面ルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRouteGuardMiddleware(deps.Sessions))
		for _, p := range ScreenPaths {
			r.Get(p, screenHandler.Show)
		}
	})

	r.Route("/api", func(r chi.Router) {
		// --- 認証不要のAPI ---
		r.Get("/auth/state", authHandler.State)
		r.Get("/plans", paymentHandler.ListPlans)
		r.Group(func(r chi.Router) {
			if deps.AuthRateLimiter != nil {
				r.Use(deps.AuthRateLimiter.Middleware())
			}
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/signup", authHandler.SignUp)
			r.Post("/auth/oauth", authHandler.OAuth)
		})

		// --- 認証が必要なAPI ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.Sessions))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/dashboard", dashboardHandler.Get)

			r.Get("/profile", profileHandler.GetProfile)
			r.Patch("/profile", profileHandler.UpdateProfile)

			r.Route("/courses", func(r chi.Router) {
				r.Get("/", courseHandler.ListCourses)
				r.Route("/{courseID}", func(r chi.Router) {
					r.Get("/", courseHandler.GetCourse)
					r.Route("/lessons/{contentID}", func(r chi.Router) {
						r.Get("/", courseHandler.GetLesson)
						r.Get("/article", courseHandler.GetArticle)
						r.Post("/article/open", courseHandler.OpenArticle)
					})
				})
			})

			r.Get("/plans/{planID}/upi", paymentHandler.GetUPILink)
			r.Post("/payments/card", paymentHandler.PayWithCard)
			r.Post("/payments/upi", paymentHandler.PayWithUPI)
			r.Get("/subscription", paymentHandler.GetSubscription)
		})
	})

	return r
}
