package course

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// mockLinkGuard はテスト用のLinkValidator。httptestのループバックに接続できるよう通常のクライアントを返す。
type mockLinkGuard struct {
	validateFn func(rawURL string) error
}

func (m *mockLinkGuard) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockLinkGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func TestParseArticleHead(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTitle string
		wantDesc  string
	}{
		{
			name:      "title and description",
			body:      `<html><head><title> Go   Concurrency </title><meta name="description" content="Patterns &amp; pitfalls"></head><body>x</body></html>`,
			wantTitle: "Go Concurrency",
			wantDesc:  "Patterns & pitfalls",
		},
		{
			name:      "open graph fallback",
			body:      `<html><head><meta property="og:title" content="OG Title"><meta property="og:description" content="OG Desc"></head></html>`,
			wantTitle: "OG Title",
			wantDesc:  "OG Desc",
		},
		{
			name:      "title wins over og:title",
			body:      `<head><meta property="og:title" content="OG"><title>Real</title></head>`,
			wantTitle: "Real",
		},
		{
			name: "meta in body is ignored",
			body: `<html><head></head><body><meta name="description" content="late"></body></html>`,
		},
		{
			name: "not html",
			body: `plain text`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, desc := ParseArticleHead([]byte(tt.body))
			if title != tt.wantTitle || desc != tt.wantDesc {
				t.Errorf("ParseArticleHead() = (%q, %q), want (%q, %q)", title, desc, tt.wantTitle, tt.wantDesc)
			}
		})
	}
}

func TestParseArticleHead_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("a", maxDescriptionLen+50)
	_, desc := ParseArticleHead([]byte(`<head><meta name="description" content="` + long + `"></head>`))
	if got := len([]rune(desc)); got != maxDescriptionLen+1 {
		t.Errorf("description length = %d, want %d", got, maxDescriptionLen+1)
	}
}

func TestArticleFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			if !strings.Contains(r.Header.Get("User-Agent"), "LearnHub") {
				t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<html><head><title>Channels</title></head></html>`))
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewArticleFetcher(&mockLinkGuard{})

	a, err := f.Fetch(context.Background(), srv.URL+"/article")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !a.Reachable || a.Title != "Channels" {
		t.Errorf("article = %+v", a)
	}

	a, err = f.Fetch(context.Background(), srv.URL+"/pdf")
	if err != nil || !a.Reachable || a.Title != "" {
		t.Errorf("pdf article = %+v, %v", a, err)
	}

	a, err = f.Fetch(context.Background(), srv.URL+"/missing")
	if err == nil || a.Reachable {
		t.Errorf("missing article = %+v, %v; want unreachable with error", a, err)
	}
}
