// Package payment は有料プランの決済（カード・UPI）と購読の有効化を提供する。
package payment

import (
	"strconv"
	"strings"

	"github.com/hitoshi/learnhub/internal/model"
)

// daysPerMonth は1か月を日数に換算する値。
const daysPerMonth = 30

// Plan は購入可能なプランを表す。
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       int      `json:"price"` // INR
	Duration    string   `json:"duration"`
	Features    []string `json:"features"`
	Recommended bool     `json:"recommended"`
}

var plans = []Plan{
	{
		ID:       "basic",
		Name:     "Basic Plan",
		Price:    299,
		Duration: "1 Month",
		Features: []string{
			"Access to all basic courses",
			"Course completion certificates",
			"Email support",
		},
	},
	{
		ID:       "pro",
		Name:     "Pro Plan",
		Price:    799,
		Duration: "3 Months",
		Features: []string{
			"Access to all courses",
			"Premium certificates",
			"Priority support",
			"Downloadable resources",
			"Live Q&A sessions",
		},
		Recommended: true,
	},
	{
		ID:       "premium",
		Name:     "Premium Plan",
		Price:    1499,
		Duration: "6 Months",
		Features: []string{
			"Everything in Pro plan",
			"1-on-1 mentoring sessions",
			"Career guidance",
			"Project reviews",
			"Interview preparation",
		},
	},
}

// Plans はプラン一覧を表示順で返す。
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// FindPlan はIDでプランを検索する。
func FindPlan(id string) (Plan, error) {
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, model.NewPlanNotFoundError(id)
}

// DefaultPlan は初期選択されるプラン（推奨プラン）を返す。
func DefaultPlan() Plan {
	for _, p := range plans {
		if p.Recommended {
			return p
		}
	}
	return plans[0]
}

// Days はプランの有効日数を返す。
func (p Plan) Days() int {
	return DurationDays(p.Duration)
}

// DurationDays は "3 Months" のような期間表記を日数に変換する。
// 月以外の単位や解釈できない表記は0を返す。
func DurationDays(duration string) int {
	fields := strings.Fields(duration)
	if len(fields) != 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return 0
	}
	switch strings.ToLower(fields[1]) {
	case "month", "months":
		return n * daysPerMonth
	default:
		return 0
	}
}
