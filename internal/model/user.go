// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Identity は外部認証プロバイダー（GoTrue）が発行したユーザーを表す。
// このシステムからは表示名以外を変更しない。
type Identity struct {
	ID       string
	Email    string
	Provider string
	// Metadata はプロバイダーのuser_metadata（full_name, name, user_name 等）。
	Metadata map[string]any
}

// MetadataString はMetadataから空白でない文字列値を取り出す。
func (i Identity) MetadataString(key string) string {
	if i.Metadata == nil {
		return ""
	}
	v, ok := i.Metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// AuthSession は有効な認証セッション（アクセストークンとリフレッシュトークン）を表す。
// 永続化はsupabaseクライアントのトークンストレージに委譲する。
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Expired はnow+marginの時点でアクセストークンが失効しているかを返す。
// ExpiresAtがゼロ値の場合は失効していないものとして扱う。
func (s *AuthSession) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// AuthEvent は認証状態変化の通知種別。
type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "INITIAL_SESSION"
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthStateListener は認証状態変化の通知を受け取るコールバック。
// サインアウト時のsessionはnil。
type AuthStateListener func(event AuthEvent, session *AuthSession)

// Profile はusersテーブルの行を表す。Identityと1対1でIDを共有する。
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
