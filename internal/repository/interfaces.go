// Package repository はデータ永続化のインターフェースを定義する。
//
// 実装はPostgRESTバックエンド（internal/supabase）とPostgreSQL直結（このパッケージ）の2種類。
// どちらの実装も「行が存在しない」を model.IsNotFound が真になるエラーで、
// 一意制約違反を model.IsConflict が真になるエラーで返す。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/learnhub/internal/model"
)

// ProfileRepository はプロフィール（usersテーブル）の永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。
	// 見つからない場合は model.IsNotFound が真になるエラーを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// Create はプロフィールを作成し、作成された行を返す。
	// 同じIDの行が既に存在する場合は model.IsConflict が真になるエラーを返す。
	Create(ctx context.Context, profile *model.Profile) (*model.Profile, error)

	// UpdateFullName は表示名を更新し、更新後の行を返す。
	UpdateFullName(ctx context.Context, id, fullName string) (*model.Profile, error)
}

// SubscriptionRepository は有料プラン購読（subscriptionsテーブル）の永続化インターフェース。
type SubscriptionRepository interface {
	// Create は購読を作成し、作成された行を返す。
	Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error)

	// LatestByUserID はユーザーの最新（created_at降順の先頭）の購読を返す。
	// 購読が無い場合は model.IsNotFound が真になるエラーを返す。
	LatestByUserID(ctx context.Context, userID string) (*model.Subscription, error)
}

// SubscriptionExpirer は有効期限切れの購読を失効させるインターフェース。
// PostgreSQLバックエンドのワーカーのみが使用する。
type SubscriptionExpirer interface {
	// ExpireOverdue はvalid_untilを過ぎたactiveな購読をexpiredに更新し、件数を返す。
	ExpireOverdue(ctx context.Context) (int64, error)
}

// CourseRepository はコースとコース内容の参照インターフェース。
type CourseRepository interface {
	// List は全コースをID昇順で返す。
	List(ctx context.Context) ([]model.Course, error)

	// FindByID は指定IDのコースを取得する。
	// 見つからない場合は model.IsNotFound が真になるエラーを返す。
	FindByID(ctx context.Context, id int64) (*model.Course, error)

	// ContentByCourseID はコースの内容をID昇順で返す。
	ContentByCourseID(ctx context.Context, courseID int64) ([]model.CourseContent, error)
}

// Pinger はDB接続確認用のインターフェース。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// compile-time interface check
var _ Pinger = (*sql.DB)(nil)
