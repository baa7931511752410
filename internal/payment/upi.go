package payment

import (
	"net/url"
	"strconv"
	"strings"
)

// 決済アプリに表示する文言
const (
	defaultPayeeName = "Course Access"
	currencyINR      = "INR"
	notePrefix       = "Course Subscription - "
)

// UPIConfig はUPI決済の受取人設定。
type UPIConfig struct {
	PayeeID   string // pa（VPA）
	PayeeName string // pn
}

// UPILink はプランのUPIディープリンクを生成する。
// パラメータ順は pa, pn, am, cu, tn で固定し、空白は%20でエスケープする。
func UPILink(cfg UPIConfig, plan Plan) string {
	name := cfg.PayeeName
	if name == "" {
		name = defaultPayeeName
	}

	params := [][2]string{
		{"pa", cfg.PayeeID},
		{"pn", name},
		{"am", strconv.Itoa(plan.Price)},
		{"cu", currencyINR},
		{"tn", notePrefix + plan.Name},
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p[0]+"="+url.PathEscape(p[1]))
	}
	return "upi://pay?" + strings.Join(parts, "&")
}
