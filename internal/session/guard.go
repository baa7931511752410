package session

import "strings"

// リダイレクト先のパス
const (
	EntryPath     = "/"
	DashboardPath = "/course/dashboard"
)

// authGroup はログイン・サインアップ画面のセグメント。
const authGroup = "auth"

// SegmentsFromPath はURLパスを画面セグメントに分割する。
// "/auth/login" → ["auth", "login"]、"/" → []
func SegmentsFromPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Decide は状態と画面セグメントからリダイレクト先を決める。
// StateUnknownの間は何もしない（初期確認中のちらつき防止）。
// 認証済みユーザーは入口・認証画面からダッシュボードへ、
// 未認証ユーザーは保護画面から入口へリダイレクトする。
func Decide(state State, segments []string) (redirect string, ok bool) {
	if state == StateUnknown {
		return "", false
	}

	inAuthGroup := len(segments) > 0 && segments[0] == authGroup
	isRoot := len(segments) == 0 || (len(segments) == 1 && segments[0] == "")

	switch {
	case state == StateAuthenticated && (inAuthGroup || isRoot):
		return DashboardPath, true
	case state == StateAnonymous && !inAuthGroup && !isRoot:
		return EntryPath, true
	}
	return "", false
}
