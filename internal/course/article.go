package course

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// 記事プレビュー取得の制限
const (
	articleTimeout     = 10 * time.Second
	maxArticleBodySize = 2 * 1024 * 1024
	maxDescriptionLen  = 300
)

// LinkValidator は外部リンク検証のインターフェース。
// security.LinkGuardServiceを抽象化してテスタビリティを向上させる。
type LinkValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// Article は教材の記事リンクのプレビュー。
type Article struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Reachable   bool   `json:"reachable"`
}

// ArticleFetcher は記事ページを取得してタイトルと概要を抽出する。
type ArticleFetcher struct {
	guard LinkValidator
}

// NewArticleFetcher はArticleFetcherを生成する。
func NewArticleFetcher(guard LinkValidator) *ArticleFetcher {
	return &ArticleFetcher{guard: guard}
}

// Fetch は記事ページを取得する。URLの検証は呼び出し側で済んでいること。
// 取得に失敗した場合はReachable=falseのプレビューとエラーを返す。
func (f *ArticleFetcher) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	article := &Article{URL: rawURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return article, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "LearnHub/1.0 Article Preview")
	req.Header.Set("Accept", "text/html, */*")

	resp, err := f.guard.NewSafeClient(articleTimeout).Do(req)
	if err != nil {
		return article, fmt.Errorf("failed to fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return article, fmt.Errorf("article returned status %d", resp.StatusCode)
	}
	article.Reachable = true

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.Contains(strings.ToLower(mediaType), "html") {
		return article, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBodySize))
	if err != nil {
		return article, fmt.Errorf("failed to read article: %w", err)
	}
	article.Title, article.Description = ParseArticleHead(body)
	return article, nil
}

// ParseArticleHead はHTMLのheadから<title>と概要（description / og:description）を抽出する。
// og:titleは<title>が無い場合にのみ使う。
func ParseArticleHead(htmlBody []byte) (title, description string) {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	var ogTitle, ogDescription string
	inTitle := false

	finish := func() (string, string) {
		if title == "" {
			title = ogTitle
		}
		if description == "" {
			description = ogDescription
		}
		return collapse(title), truncate(collapse(description), maxDescriptionLen)
	}

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return finish()

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			switch string(tn) {
			case "body":
				return finish()
			case "title":
				inTitle = true
			case "meta":
				if !hasAttr {
					continue
				}
				var name, content string
				for {
					key, val, more := tokenizer.TagAttr()
					switch strings.ToLower(string(key)) {
					case "name", "property":
						name = strings.ToLower(string(val))
					case "content":
						content = string(val)
					}
					if !more {
						break
					}
				}
				switch name {
				case "description":
					description = content
				case "og:description":
					ogDescription = content
				case "og:title":
					ogTitle = content
				}
			}

		case html.TextToken:
			if inTitle && title == "" {
				title = string(tokenizer.Text())
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "title":
				inTitle = false
			case "head":
				return finish()
			}
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
