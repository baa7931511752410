package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/learnhub/internal/course"
	"github.com/hitoshi/learnhub/internal/middleware"
	"github.com/hitoshi/learnhub/internal/model"
)

// CourseServiceInterface はコースハンドラーが必要とするサービスインターフェース。
type CourseServiceInterface interface {
	List(ctx context.Context) ([]model.Course, error)
	Content(ctx context.Context, courseID int64) (*course.Detail, error)
	Lesson(ctx context.Context, courseID, contentID int64) (*course.Lesson, error)
	ArticlePreview(ctx context.Context, courseID, contentID int64) (*course.Article, error)
	OpenArticle(ctx context.Context, courseID, contentID int64) (string, error)
}

// CourseHandler はコース一覧・内容・記事リンクのHTTPハンドラー。
type CourseHandler struct {
	service CourseServiceInterface
	logger  *slog.Logger
}

// NewCourseHandler はCourseHandlerを生成する。
func NewCourseHandler(service CourseServiceInterface, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{service: service, logger: loggerOrDefault(logger)}
}

// ListCourses はコース一覧をID昇順で返す。
// GET /api/courses
func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

// GetCourse はコースと教材一覧を返す。先頭の教材が既定の選択になる。
// GET /api/courses/{courseID}
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := int64Param(w, r, "courseID")
	if !ok {
		return
	}

	detail, err := h.service.Content(r.Context(), courseID)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetLesson は1件の教材を埋め込みURL付きで返す。
// GET /api/courses/{courseID}/lessons/{contentID}
func (h *CourseHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	courseID, contentID, ok := lessonParams(w, r)
	if !ok {
		return
	}

	lesson, err := h.service.Lesson(r.Context(), courseID, contentID)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

// GetArticle は教材の記事リンクのプレビュー（タイトル・説明）を返す。
// GET /api/courses/{courseID}/lessons/{contentID}/article
func (h *CourseHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	courseID, contentID, ok := lessonParams(w, r)
	if !ok {
		return
	}

	article, err := h.service.ArticlePreview(r.Context(), courseID, contentID)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// OpenArticle は記事リンクを外部ブラウザで開く。
// POST /api/courses/{courseID}/lessons/{contentID}/article/open
func (h *CourseHandler) OpenArticle(w http.ResponseWriter, r *http.Request) {
	courseID, contentID, ok := lessonParams(w, r)
	if !ok {
		return
	}

	link, err := h.service.OpenArticle(r.Context(), courseID, contentID)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func lessonParams(w http.ResponseWriter, r *http.Request) (courseID, contentID int64, ok bool) {
	if courseID, ok = int64Param(w, r, "courseID"); !ok {
		return 0, 0, false
	}
	if contentID, ok = int64Param(w, r, "contentID"); !ok {
		return 0, 0, false
	}
	return courseID, contentID, true
}
