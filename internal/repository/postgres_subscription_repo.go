package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/learnhub/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// Create は購読を作成する。IDが空の場合はUUIDを採番する。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	id := sub.ID
	if id == "" {
		id = uuid.New().String()
	}

	created := &model.Subscription{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO subscriptions (id, user_id, status, plan_id, amount_paid, valid_until)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, status, plan_id, amount_paid, valid_until, created_at`,
		id, sub.UserID, string(sub.Status), sub.PlanID, sub.AmountPaid, sub.ValidUntil,
	).Scan(&created.ID, &created.UserID, &created.Status, &created.PlanID,
		&created.AmountPaid, &created.ValidUntil, &created.CreatedAt)
	if err != nil {
		return nil, translate("failed to insert subscription", err)
	}
	return created, nil
}

// LatestByUserID はユーザーの最新の購読を返す。
func (r *PostgresSubscriptionRepo) LatestByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, status, plan_id, amount_paid, valid_until, created_at
		 FROM subscriptions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&sub.ID, &sub.UserID, &sub.Status, &sub.PlanID,
		&sub.AmountPaid, &sub.ValidUntil, &sub.CreatedAt)
	if err != nil {
		return nil, translate("failed to find latest subscription", err)
	}
	return sub, nil
}

// ExpireOverdue はvalid_untilを過ぎたactiveな購読をexpiredに更新する。
func (r *PostgresSubscriptionRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1
		 WHERE status = $2 AND valid_until < now()`,
		string(model.SubscriptionStatusExpired), string(model.SubscriptionStatusActive),
	)
	if err != nil {
		return 0, translate("failed to expire subscriptions", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var (
	_ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
	_ SubscriptionExpirer    = (*PostgresSubscriptionRepo)(nil)
)
