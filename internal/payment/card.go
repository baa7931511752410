package payment

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hitoshi/learnhub/internal/model"
)

// 入力形式。カード番号はスペースを除いた16桁、有効期限の月は01〜12。
var (
	cardNumberPattern = regexp.MustCompile(`^[0-9]{16}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	cvvPattern        = regexp.MustCompile(`^[0-9]{3}$`)
)

// Card はカード決済フォームの入力値。
type Card struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"` // MM/YY
	CVV    string `json:"cvv"`
	Name   string `json:"name"`
}

// ValidateCard はカード入力を検証し、最初に見つかった問題を返す。
// 各項目の検査は他の項目に依存しない。
func ValidateCard(c Card) error {
	if !cardNumberPattern.MatchString(stripSpaces(c.Number)) {
		return model.NewValidationError("number", "Please enter a valid card number")
	}
	if !expiryPattern.MatchString(c.Expiry) {
		return model.NewValidationError("expiry", "Please enter a valid expiry date (MM/YY)")
	}
	if !cvvPattern.MatchString(c.CVV) {
		return model.NewValidationError("cvv", "Please enter a valid CVV")
	}
	if strings.TrimSpace(c.Name) == "" {
		return model.NewValidationError("name", "Please enter the cardholder's name")
	}
	return nil
}

// FormatCardNumber は入力中のカード番号を4桁ごとに区切る。
func FormatCardNumber(text string) string {
	cleaned := []rune(stripSpaces(text))
	var b strings.Builder
	for i, r := range cleaned {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiry は入力中の有効期限を MM/YY 形式に整える。数字以外は捨てる。
func FormatExpiry(text string) string {
	var digits []rune
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 2 {
		return string(digits)
	}
	end := min(len(digits), 4)
	return string(digits[:2]) + "/" + string(digits[2:end])
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// maskCardNumber はログ用に下4桁以外を伏せる。
func maskCardNumber(number string) string {
	n := stripSpaces(number)
	if len(n) <= 4 {
		return "****"
	}
	return "****" + n[len(n)-4:]
}
