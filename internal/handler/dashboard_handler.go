package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/learnhub/internal/middleware"
	"github.com/hitoshi/learnhub/internal/model"
)

// ProfileEnsurer はプロフィールの取得または作成を行う。profile.Bootstrapperが満たす。
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, identity model.Identity) (*model.Profile, error)
}

// CourseLister はコース一覧を返す。
type CourseLister interface {
	List(ctx context.Context) ([]model.Course, error)
}

// DashboardHandler はダッシュボード画面のデータを返すハンドラー。
type DashboardHandler struct {
	sessions middleware.SessionSource
	profiles ProfileEnsurer
	courses  CourseLister
	logger   *slog.Logger
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(sessions middleware.SessionSource, profiles ProfileEnsurer, courses CourseLister, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		sessions: sessions,
		profiles: profiles,
		courses:  courses,
		logger:   loggerOrDefault(logger),
	}
}

type dashboardResponse struct {
	Profile *model.Profile `json:"profile"`
	Courses []model.Course `json:"courses"`
}

// Get はプロフィール（無ければ作成）とコース一覧を返す。
// GET /api/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Session()
	if s == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.profiles.EnsureProfile(r.Context(), s.User)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	courses, err := h.courses.List(r.Context())
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{Profile: profile, Courses: courses})
}
