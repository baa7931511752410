// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（ユーザー向け）
	Category string // カテゴリ: auth, validation, payment, course, system
	Action   string // ユーザー向け対処方法
	Field    string // バリデーションエラーの対象フィールド（任意）
	Err      error  // 原因（ログ用。ユーザーには返さない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeTransport              = "TRANSPORT_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeAuth                   = "AUTH_ERROR"
	ErrCodeSessionTimeout         = "SESSION_ESTABLISHMENT_TIMEOUT"
	ErrCodeDuplicateProfile       = "DUPLICATE_PROFILE"
	ErrCodeProfileFetchFailed     = "PROFILE_FETCH_FAILED"
	ErrCodeProfileCreateFailed    = "PROFILE_CREATE_FAILED"
	ErrCodeProfileUpdateFailed    = "PROFILE_UPDATE_FAILED"
	ErrCodePlanNotFound           = "PLAN_NOT_FOUND"
	ErrCodePaymentFailed          = "PAYMENT_FAILED"
	ErrCodeCourseNotFound         = "COURSE_NOT_FOUND"
	ErrCodeContentNotFound        = "CONTENT_NOT_FOUND"
	ErrCodeLinkBlocked            = "LINK_BLOCKED"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
)

// バックエンド（PostgREST / PostgreSQL）が返すエラーコード。
const (
	// BackendCodeNoRows は単一行クエリで0行だった場合のPostgRESTのコード。
	// PostgreSQLバックエンドでもsql.ErrNoRowsをこのコードに変換する。
	BackendCodeNoRows = "PGRST116"
	// BackendCodeUniqueViolation は一意制約違反（SQLSTATE 23505）。
	BackendCodeUniqueViolation = "23505"
)

// BackendError はバックエンドが返した構造化エラーを表す。
// PostgRESTのエラーボディ、GoTrueのエラーボディ、pq.Errorをこの形に揃える。
type BackendError struct {
	Status  int    // HTTPステータス（PostgreSQLバックエンドでは0）
	Code    string // PGRST116, 23505, invalid_credentials 等
	Message string
	Details string
	Hint    string
}

// Error はerrorインターフェースを実装する。
func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error (%s): %s", e.Code, e.Message)
}

// NewNoRowsError は0行エラーを生成する。
func NewNoRowsError(message string) *BackendError {
	return &BackendError{Code: BackendCodeNoRows, Message: message}
}

// IsNotFound はエラーチェーンに「行が存在しない」エラーが含まれるかを返す。
// 通信エラーや認証エラーとは区別される。
func IsNotFound(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Code == BackendCodeNoRows
	}
	return HasCode(err, ErrCodeNotFound)
}

// IsConflict はエラーチェーンに一意制約違反が含まれるかを返す。
// PostgRESTは外部キー違反（23503）も409で返すため、409はコードが無い場合に限り競合とみなす。
func IsConflict(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		if be.Code != "" {
			return be.Code == BackendCodeUniqueViolation
		}
		return be.Status == 409
	}
	return false
}

// IsTransport はエラーチェーンに通信エラーが含まれるかを返す。
func IsTransport(err error) bool {
	return HasCode(err, ErrCodeTransport)
}

// HasCode はエラーチェーン中のAPIErrorが指定コードを持つかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	for err != nil {
		if !errors.As(err, &apiErr) {
			return false
		}
		if apiErr.Code == code {
			return true
		}
		err = apiErr.Err
	}
	return false
}

// NewTransportError は通信エラーを生成する。手動での再試行は安全。
func NewTransportError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeTransport,
		Message:  "Could not reach the server.",
		Category: "system",
		Action:   "Check your connection and try again.",
		Err:      err,
	}
}

// NewValidationError は入力検証エラーを生成する。ネットワーク呼び出し前に返す。
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Correct the highlighted field and try again.",
		Field:    field,
	}
}

// NewAuthError は認証失敗エラー（誤った資格情報、OAuth拒否など）を生成する。
func NewAuthError(message string, err error) *APIError {
	if message == "" {
		message = "Authentication failed."
	}
	return &APIError{
		Code:     ErrCodeAuth,
		Message:  message,
		Category: "auth",
		Action:   "Check your credentials and try again.",
		Err:      err,
	}
}

// NewEmailAlreadyRegisteredError はサインアップ時のメール重複エラーを生成する。
func NewEmailAlreadyRegisteredError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "This email is already registered.",
		Category: "auth",
		Action:   "Log in instead, or use a different email.",
		Err:      err,
	}
}

// NewSessionTimeoutError はOAuth完了待ちのポーリングが尽きた場合のエラーを生成する。
func NewSessionTimeoutError(attempts int) *APIError {
	return &APIError{
		Code:     ErrCodeSessionTimeout,
		Message:  fmt.Sprintf("Failed to establish session after %d attempts.", attempts),
		Category: "auth",
		Action:   "Finish signing in with the provider, then try again.",
	}
}

// NewDuplicateProfileError はプロフィール作成が競合し、再取得にも失敗した場合のエラーを生成する。
func NewDuplicateProfileError(userID string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateProfile,
		Message:  fmt.Sprintf("Profile for user %s was created concurrently and could not be loaded.", userID),
		Category: "system",
		Action:   "Try again in a moment.",
		Err:      err,
	}
}

// NewProfileFetchFailedError はプロフィール取得失敗エラーを生成する。
func NewProfileFetchFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeProfileFetchFailed,
		Message:  "Failed to fetch user profile.",
		Category: "system",
		Action:   "Try again in a moment.",
		Err:      err,
	}
}

// NewProfileCreateFailedError はプロフィール作成失敗エラーを生成する。
func NewProfileCreateFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeProfileCreateFailed,
		Message:  "Failed to create user profile.",
		Category: "system",
		Action:   "Try again in a moment.",
		Err:      err,
	}
}

// NewProfileUpdateFailedError は表示名更新失敗エラーを生成する。
func NewProfileUpdateFailedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeProfileUpdateFailed,
		Message:  "Failed to update profile.",
		Category: "system",
		Action:   "Try again in a moment.",
		Err:      err,
	}
}

// NewPlanNotFoundError は存在しないプランIDが指定された場合のエラーを生成する。
func NewPlanNotFoundError(planID string) *APIError {
	return &APIError{
		Code:     ErrCodePlanNotFound,
		Message:  fmt.Sprintf("Unknown plan: %s", planID),
		Category: "payment",
		Action:   "Choose one of the listed plans.",
	}
}

// NewPaymentFailedError は決済またはサブスクリプション登録の失敗エラーを生成する。
func NewPaymentFailedError(message string, err error) *APIError {
	return &APIError{
		Code:     ErrCodePaymentFailed,
		Message:  message,
		Category: "payment",
		Action:   "You have not been charged twice. Try again or use another payment method.",
		Err:      err,
	}
}

// NewCourseNotFoundError はコースが見つからない場合のエラーを生成する。
func NewCourseNotFoundError(courseID int64) *APIError {
	return &APIError{
		Code:     ErrCodeCourseNotFound,
		Message:  fmt.Sprintf("Course not found: %d", courseID),
		Category: "course",
		Action:   "Go back to the course list.",
	}
}

// NewUnauthorizedError は未ログイン状態での操作エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Not authenticated.",
		Category: "auth",
		Action:   "Log in and try again.",
	}
}

// NewContentNotFoundError はコース内の教材が見つからない場合のエラーを生成する。
func NewContentNotFoundError(courseID, contentID int64) *APIError {
	return &APIError{
		Code:     ErrCodeContentNotFound,
		Message:  fmt.Sprintf("Lesson %d not found in course %d", contentID, courseID),
		Category: "course",
		Action:   "Go back to the course and pick another lesson.",
	}
}

// NewLinkBlockedError は安全でない外部リンクを開こうとした場合のエラーを生成する。
func NewLinkBlockedError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeLinkBlocked,
		Message:  "This link cannot be opened.",
		Category: "course",
		Action:   "Report the broken link to the course author.",
		Err:      err,
	}
}
