package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/learnhub/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.CreatedAt)
	if err != nil {
		return nil, translate("failed to find profile by ID", err)
	}
	return p, nil
}

// Create はプロフィールを作成する。主キー重複は23505として返る。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, full_name, email)
		 VALUES ($1, $2, $3)
		 RETURNING id, full_name, email, created_at`,
		profile.ID, profile.FullName, profile.Email,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.CreatedAt)
	if err != nil {
		return nil, translate("failed to insert profile", err)
	}
	return p, nil
}

// UpdateFullName は表示名を更新する。対象行が無い場合はPGRST116を返す。
func (r *PostgresProfileRepo) UpdateFullName(ctx context.Context, id, fullName string) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET full_name = $2 WHERE id = $1
		 RETURNING id, full_name, email, created_at`,
		id, fullName,
	).Scan(&p.ID, &p.FullName, &p.Email, &p.CreatedAt)
	if err != nil {
		return nil, translate("failed to update profile", err)
	}
	return p, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
