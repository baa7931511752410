package model

import "time"

// Course はcoursesテーブルの行を表す。
type Course struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Level       string `json:"level"`
}

// CourseContent はcourse_contentテーブルの行（1本の動画と教材）を表す。
type CourseContent struct {
	ID          int64  `json:"id"`
	CourseID    int64  `json:"course_id"`
	Title       string `json:"title"`
	Notes       string `json:"notes"`
	VideoURL    string `json:"video_url"`
	ArticleLink string `json:"article_link"`
}

// SubscriptionStatus は購読（有料プラン）の状態。
type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription はsubscriptionsテーブルの行を表す。
// 決済フロー以外からは書き込まない。
type Subscription struct {
	ID         string             `json:"id,omitempty"`
	UserID     string             `json:"user_id"`
	Status     SubscriptionStatus `json:"status"`
	PlanID     string             `json:"plan_id"`
	AmountPaid float64            `json:"amount_paid"`
	ValidUntil time.Time          `json:"valid_until"`
	CreatedAt  time.Time          `json:"created_at,omitempty"`
}

// IsActive はnow時点で購読が有効かどうかを返す。
func (s *Subscription) IsActive(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionStatusActive && now.Before(s.ValidUntil)
}
