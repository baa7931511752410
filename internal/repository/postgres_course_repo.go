package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/learnhub/internal/model"
)

// PostgresCourseRepo はPostgreSQLを使用したコースリポジトリ。
type PostgresCourseRepo struct {
	db *sql.DB
}

// NewPostgresCourseRepo はPostgresCourseRepoを生成する。
func NewPostgresCourseRepo(db *sql.DB) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: db}
}

// List は全コースをID昇順で返す。
func (r *PostgresCourseRepo) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, duration, level FROM courses ORDER BY id ASC`,
	)
	if err != nil {
		return nil, translate("failed to list courses", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Duration, &c.Level); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courses: %w", err)
	}
	return courses, nil
}

// FindByID は指定IDのコースを取得する。
func (r *PostgresCourseRepo) FindByID(ctx context.Context, id int64) (*model.Course, error) {
	c := &model.Course{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, duration, level FROM courses WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Duration, &c.Level)
	if err != nil {
		return nil, translate("failed to find course by ID", err)
	}
	return c, nil
}

// ContentByCourseID はコースの内容をID昇順で返す。
func (r *PostgresCourseRepo) ContentByCourseID(ctx context.Context, courseID int64) ([]model.CourseContent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, course_id, title, notes, video_url, article_link
		 FROM course_content WHERE course_id = $1 ORDER BY id ASC`,
		courseID,
	)
	if err != nil {
		return nil, translate("failed to list course content", err)
	}
	defer rows.Close()

	var contents []model.CourseContent
	for rows.Next() {
		var c model.CourseContent
		if err := rows.Scan(&c.ID, &c.CourseID, &c.Title, &c.Notes, &c.VideoURL, &c.ArticleLink); err != nil {
			return nil, fmt.Errorf("failed to scan course content: %w", err)
		}
		contents = append(contents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate course content: %w", err)
	}
	return contents, nil
}

// compile-time interface check
var _ CourseRepository = (*PostgresCourseRepo)(nil)
