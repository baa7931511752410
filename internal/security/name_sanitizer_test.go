package security

import (
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	s := NewNameSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Alice Smith", "Alice Smith"},
		{"前後の空白を除去", "  Bob  ", "Bob"},
		{"連続する空白をまとめる", "Carol \t\n  Jones", "Carol Jones"},
		{"タグを除去", "<b>Dave</b>", "Dave"},
		{"scriptは内容ごと除去", "<script>alert(1)</script>Eve", "Eve"},
		{"アンパサンドはエスケープしない", "Tom & Jerry", "Tom & Jerry"},
		{"アポストロフィ", "O'Brien", "O'Brien"},
		{"日本語", "山田 太郎", "山田 太郎"},
		{"タグのみは空", "<img src=x onerror=alert(1)>", ""},
		{"空白のみは空", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeName(tt.input); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeName_TruncatesLongNames(t *testing.T) {
	got := NewNameSanitizer().SanitizeName(strings.Repeat("あ", 150))
	if n := len([]rune(got)); n != maxNameRunes {
		t.Errorf("len = %d, want %d", n, maxNameRunes)
	}
}

// 同一入力に対して常に同一出力を返す（冪等）
func TestSanitizeName_Idempotent(t *testing.T) {
	s := NewNameSanitizer()
	once := s.SanitizeName("  <i>Grace</i>  Hopper ")
	if twice := s.SanitizeName(once); twice != once {
		t.Errorf("not idempotent: %q -> %q", once, twice)
	}
}
