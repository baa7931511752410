package course

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/learnhub/internal/browser"
	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/repository"
)

// Lesson は教材1件と埋め込みプレーヤーのURL。
type Lesson struct {
	model.CourseContent
	EmbedURL string `json:"embed_url"`
}

// Detail はコースと教材一覧。SelectedIDは初期選択される教材（先頭）。
type Detail struct {
	Course     model.Course `json:"course"`
	Lessons    []Lesson     `json:"lessons"`
	SelectedID int64        `json:"selected_id,omitempty"`
}

// Service はコース閲覧のビジネスロジックを提供する。
type Service struct {
	repo    repository.CourseRepository
	guard   LinkValidator
	fetcher *ArticleFetcher
	opener  browser.Opener
	logger  *slog.Logger
}

// NewService はServiceを生成する。
func NewService(repo repository.CourseRepository, guard LinkValidator, opener browser.Opener, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opener == nil {
		opener = browser.NewLogOpener(logger)
	}
	return &Service{
		repo:    repo,
		guard:   guard,
		fetcher: NewArticleFetcher(guard),
		opener:  opener,
		logger:  logger,
	}
}

// List はコース一覧をID昇順で返す。
func (s *Service) List(ctx context.Context) ([]model.Course, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

// Content はコースと教材一覧を返す。先頭の教材が初期選択になる。
func (s *Service) Content(ctx context.Context, courseID int64) (*Detail, error) {
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		if model.IsNotFound(err) {
			return nil, model.NewCourseNotFoundError(courseID)
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	items, err := s.repo.ContentByCourseID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course content: %w", err)
	}

	detail := &Detail{Course: *course, Lessons: make([]Lesson, 0, len(items))}
	for _, item := range items {
		detail.Lessons = append(detail.Lessons, Lesson{CourseContent: item, EmbedURL: EmbedURL(item.VideoURL)})
	}
	if len(detail.Lessons) > 0 {
		detail.SelectedID = detail.Lessons[0].ID
	}
	return detail, nil
}

// Lesson はコース内の教材1件を返す。
func (s *Service) Lesson(ctx context.Context, courseID, contentID int64) (*Lesson, error) {
	detail, err := s.Content(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for i := range detail.Lessons {
		if detail.Lessons[i].ID == contentID {
			return &detail.Lessons[i], nil
		}
	}
	return nil, model.NewContentNotFoundError(courseID, contentID)
}

// ArticlePreview は教材の記事リンクのタイトルと概要を取得する。
// リンク先に到達できない場合もエラーにはせず、Reachable=falseで返す。
func (s *Service) ArticlePreview(ctx context.Context, courseID, contentID int64) (*Article, error) {
	link, err := s.articleLink(ctx, courseID, contentID)
	if err != nil {
		return nil, err
	}

	article, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		s.logger.Warn("article preview unavailable",
			slog.Int64("course_id", courseID),
			slog.Int64("content_id", contentID),
			slog.String("error", err.Error()),
		)
	}
	return article, nil
}

// OpenArticle は教材の記事リンクを外部ブラウザで開く。
func (s *Service) OpenArticle(ctx context.Context, courseID, contentID int64) (string, error) {
	link, err := s.articleLink(ctx, courseID, contentID)
	if err != nil {
		return "", err
	}
	if err := s.opener.Open(ctx, link); err != nil {
		return "", fmt.Errorf("failed to open article: %w", err)
	}
	return link, nil
}

// articleLink は教材の記事リンクを取得し、安全性を検証する。
func (s *Service) articleLink(ctx context.Context, courseID, contentID int64) (string, error) {
	lesson, err := s.Lesson(ctx, courseID, contentID)
	if err != nil {
		return "", err
	}
	if err := s.guard.ValidateURL(lesson.ArticleLink); err != nil {
		s.logger.Warn("article link blocked",
			slog.Int64("content_id", contentID),
			slog.String("error", err.Error()),
		)
		return "", model.NewLinkBlockedError(err)
	}
	return lesson.ArticleLink, nil
}
