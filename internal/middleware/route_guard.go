package middleware

import (
	"net/http"

	"github.com/hitoshi/learnhub/internal/session"
)

// StateSource は現在の認証状態を返すインターフェース。
type StateSource interface {
	State() session.State
}

// NewRouteGuardMiddleware は画面ルートに認証状態に応じたリダイレクトを適用する。
// 状態が未確定の間は503とRetry-Afterを返し、リダイレクトしない。
func NewRouteGuardMiddleware(source StateSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := source.State()
			if state == session.StateUnknown {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}

			if target, ok := session.Decide(state, session.SegmentsFromPath(r.URL.Path)); ok {
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
