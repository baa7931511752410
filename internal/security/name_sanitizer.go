package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizerService は表示名のサニタイズ機能のインターフェース。
// プロフィール作成・表示名更新の前に使用される。
type NameSanitizerService interface {
	// SanitizeName はHTMLタグを除去し、連続する空白を1つにまとめ、前後の空白を取り除く。
	// 結果が空文字列になる場合もある（呼び出し側で検証する）。
	SanitizeName(name string) string
}

// maxNameRunes は表示名の最大文字数。
const maxNameRunes = 100

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのStrictPolicyですべてのタグを除去する。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{policy: bluemonday.StrictPolicy()}
}

// SanitizeName は表示名をサニタイズする。
// StrictPolicyはテキスト中の&や'をエスケープするため、プレーンテキストに戻してから保存する。
func (s *nameSanitizer) SanitizeName(name string) string {
	cleaned := html.UnescapeString(s.policy.Sanitize(name))
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if r := []rune(cleaned); len(r) > maxNameRunes {
		cleaned = strings.TrimSpace(string(r[:maxNameRunes]))
	}
	return cleaned
}

// compile-time interface check
var _ NameSanitizerService = (*nameSanitizer)(nil)
