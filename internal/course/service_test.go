package course

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/learnhub/internal/model"
)

// --- モック定義 ---

type mockCourseRepo struct {
	listFn    func(ctx context.Context) ([]model.Course, error)
	findFn    func(ctx context.Context, id int64) (*model.Course, error)
	contentFn func(ctx context.Context, courseID int64) ([]model.CourseContent, error)
}

func (m *mockCourseRepo) List(ctx context.Context) ([]model.Course, error) {
	return m.listFn(ctx)
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id int64) (*model.Course, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return &model.Course{ID: id, Title: "Go Basics"}, nil
}

func (m *mockCourseRepo) ContentByCourseID(ctx context.Context, courseID int64) ([]model.CourseContent, error) {
	return m.contentFn(ctx, courseID)
}

type mockOpener struct {
	urls []string
}

func (m *mockOpener) Open(ctx context.Context, url string) error {
	m.urls = append(m.urls, url)
	return nil
}

func contentWithLink(link string) func(ctx context.Context, courseID int64) ([]model.CourseContent, error) {
	return func(ctx context.Context, courseID int64) ([]model.CourseContent, error) {
		return []model.CourseContent{
			{ID: 10, CourseID: courseID, Title: "Intro", VideoURL: "https://youtu.be/abc", ArticleLink: link},
			{ID: 11, CourseID: courseID, Title: "Next", VideoURL: "https://vimeo.com/123"},
		}, nil
	}
}

func TestService_List_EmptyIsNotNil(t *testing.T) {
	repo := &mockCourseRepo{listFn: func(ctx context.Context) ([]model.Course, error) { return nil, nil }}
	courses, err := NewService(repo, &mockLinkGuard{}, &mockOpener{}, nil).List(context.Background())
	if err != nil || courses == nil || len(courses) != 0 {
		t.Errorf("List() = %v, %v; want empty slice", courses, err)
	}
}

func TestService_Content(t *testing.T) {
	repo := &mockCourseRepo{contentFn: contentWithLink("https://go.dev/blog")}
	d, err := NewService(repo, &mockLinkGuard{}, &mockOpener{}, nil).Content(context.Background(), 1)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if d.SelectedID != 10 || len(d.Lessons) != 2 {
		t.Errorf("detail = %+v", d)
	}
	if d.Lessons[0].EmbedURL != "https://www.youtube.com/embed/abc" || d.Lessons[1].EmbedURL != "https://player.vimeo.com/video/123" {
		t.Errorf("embed urls = %q, %q", d.Lessons[0].EmbedURL, d.Lessons[1].EmbedURL)
	}
}

func TestService_Content_EmptyHasNoSelection(t *testing.T) {
	repo := &mockCourseRepo{contentFn: func(ctx context.Context, courseID int64) ([]model.CourseContent, error) {
		return nil, nil
	}}
	d, err := NewService(repo, &mockLinkGuard{}, &mockOpener{}, nil).Content(context.Background(), 1)
	if err != nil || d.SelectedID != 0 || len(d.Lessons) != 0 {
		t.Errorf("Content() = %+v, %v", d, err)
	}
}

func TestService_Content_CourseNotFound(t *testing.T) {
	repo := &mockCourseRepo{findFn: func(ctx context.Context, id int64) (*model.Course, error) {
		return nil, model.NewNoRowsError("no rows")
	}}
	_, err := NewService(repo, &mockLinkGuard{}, &mockOpener{}, nil).Content(context.Background(), 99)
	if !model.HasCode(err, model.ErrCodeCourseNotFound) {
		t.Errorf("error = %v, want COURSE_NOT_FOUND", err)
	}
}

func TestService_Lesson_NotFound(t *testing.T) {
	repo := &mockCourseRepo{contentFn: contentWithLink("")}
	_, err := NewService(repo, &mockLinkGuard{}, &mockOpener{}, nil).Lesson(context.Background(), 1, 99)
	if !model.HasCode(err, model.ErrCodeContentNotFound) {
		t.Errorf("error = %v, want CONTENT_NOT_FOUND", err)
	}
}

func TestService_OpenArticle(t *testing.T) {
	repo := &mockCourseRepo{contentFn: contentWithLink("https://go.dev/blog")}
	opener := &mockOpener{}
	link, err := NewService(repo, &mockLinkGuard{}, opener, nil).OpenArticle(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("OpenArticle() error = %v", err)
	}
	if link != "https://go.dev/blog" || len(opener.urls) != 1 {
		t.Errorf("link = %q, opened = %v", link, opener.urls)
	}
}

// 検証に通らないリンクは開かない
func TestService_OpenArticle_Blocked(t *testing.T) {
	repo := &mockCourseRepo{contentFn: contentWithLink("javascript:alert(1)")}
	guard := &mockLinkGuard{validateFn: func(string) error { return errors.New("scheme not allowed") }}
	opener := &mockOpener{}

	_, err := NewService(repo, guard, opener, nil).OpenArticle(context.Background(), 1, 10)
	if !model.HasCode(err, model.ErrCodeLinkBlocked) {
		t.Errorf("error = %v, want LINK_BLOCKED", err)
	}
	if len(opener.urls) != 0 {
		t.Errorf("opened = %v, want none", opener.urls)
	}
}

func TestService_ArticlePreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<head><title>Effective Go</title></head>`))
	}))
	defer srv.Close()

	repo := &mockCourseRepo{contentFn: contentWithLink(srv.URL)}
	a, err := NewService(repo, &mockLinkGuard{}, &mockOpener{}, nil).ArticlePreview(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("ArticlePreview() error = %v", err)
	}
	if a.Title != "Effective Go" || !a.Reachable {
		t.Errorf("article = %+v", a)
	}
}

// 到達できないリンクはエラーにせずReachable=falseで返す
func TestService_ArticlePreview_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	repo := &mockCourseRepo{contentFn: contentWithLink(srv.URL)}
	a, err := NewService(repo, &mockLinkGuard{}, &mockOpener{}, nil).ArticlePreview(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("ArticlePreview() error = %v", err)
	}
	if a.Reachable {
		t.Errorf("article = %+v, want unreachable", a)
	}
}
