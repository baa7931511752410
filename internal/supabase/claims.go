package supabase

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/learnhub/internal/model"
)

// AccessClaims はGoTrueが発行するアクセストークンのクレーム。
type AccessClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	AppMetadata  map[string]any `json:"app_metadata"`
	jwt.RegisteredClaims
}

// ErrInvalidAccessToken はアクセストークンが解析・検証できない場合のエラー。
var ErrInvalidAccessToken = errors.New("invalid access token")

// ParseAccessToken はアクセストークンを解析する。
// secretが空でない場合はHS256署名と有効期限を検証し、空の場合は署名を検証せずにクレームだけを読む
// （anonキーしか持たないクライアントではサーバー側で検証される）。
func ParseAccessToken(token, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	if secret == "" {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
		}
		return claims, nil
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	return claims, nil
}

// Identity はクレームからIdentityを組み立てる。
func (c *AccessClaims) Identity() model.Identity {
	provider := ""
	if c.AppMetadata != nil {
		if p, ok := c.AppMetadata["provider"].(string); ok {
			provider = p
		}
	}
	return model.Identity{
		ID:       c.Subject,
		Email:    c.Email,
		Provider: provider,
		Metadata: c.UserMetadata,
	}
}

// Expiry はexpクレームの時刻を返す。expが無い場合はゼロ値。
func (c *AccessClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
