package auth

import (
	"regexp"
	"strings"

	"github.com/hitoshi/learnhub/internal/model"
)

// minPasswordLength はサインアップ時のパスワード最小長。
const minPasswordLength = 8

// emailPattern は「何か@何か.何か」の緩い形式チェック。
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// SignUpInput はサインアップフォームの入力値。
type SignUpInput struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ValidateLogin はパスワードログインの入力を検証する。
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return model.NewValidationError("email", "Please enter both email and password")
	}
	return nil
}

// ValidateSignUp はサインアップの入力を上から順に検証し、最初のエラーを返す。
func ValidateSignUp(in SignUpInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return model.NewValidationError("full_name", "Please enter your full name")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return model.NewValidationError("email", "Please enter your email")
	}
	if !emailPattern.MatchString(email) {
		return model.NewValidationError("email", "Please enter a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		return model.NewValidationError("password", "Password must be at least 8 characters long")
	}
	if in.Password != in.ConfirmPassword {
		return model.NewValidationError("confirm_password", "Passwords do not match")
	}
	return nil
}
