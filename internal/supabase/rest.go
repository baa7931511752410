package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/repository"
)

// TokenSource はPostgREST呼び出しに使うアクセストークンを提供する。
// 空文字列の場合はanonキーで呼び出す（RLSにより参照のみ許可される想定）。
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// objectAccept は単一行レスポンスを要求するAcceptヘッダー。
// 0行の場合PostgRESTは406とPGRST116を返す。
const objectAccept = "application/vnd.pgrst.object+json"

// rest はPostgREST（/rest/v1）呼び出しの共通部分。
type rest struct {
	client *Client
	tokens TokenSource
}

func (r rest) call(ctx context.Context, req request, out any) error {
	if r.tokens != nil {
		token, err := r.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		req.bearer = token
	}
	return r.client.do(ctx, req, out)
}

func eq(v string) string {
	return url.QueryEscape("eq." + v)
}

// ProfileTable はusersテーブルのPostgREST実装。
type ProfileTable struct {
	rest
}

// NewProfileTable はProfileTableを生成する。
func NewProfileTable(client *Client, tokens TokenSource) *ProfileTable {
	return &ProfileTable{rest{client: client, tokens: tokens}}
}

// FindByID は指定IDのプロフィールを取得する。0行の場合はPGRST116が返る。
func (t *ProfileTable) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := t.call(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/users?select=*&id=" + eq(id),
		headers: map[string]string{"Accept": objectAccept},
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}
	return &p, nil
}

// Create はプロフィールを作成する。主キー重複はPostgRESTから409/23505で返る。
func (t *ProfileTable) Create(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	var p model.Profile
	err := t.call(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/users",
		body: map[string]string{
			"id":        profile.ID,
			"full_name": profile.FullName,
			"email":     profile.Email,
		},
		headers: map[string]string{
			"Accept": objectAccept,
			"Prefer": "return=representation",
		},
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	return &p, nil
}

// UpdateFullName は表示名を更新する。
func (t *ProfileTable) UpdateFullName(ctx context.Context, id, fullName string) (*model.Profile, error) {
	var p model.Profile
	err := t.call(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/users?id=" + eq(id),
		body:   map[string]string{"full_name": fullName},
		headers: map[string]string{
			"Accept": objectAccept,
			"Prefer": "return=representation",
		},
	}, &p)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &p, nil
}

// SubscriptionTable はsubscriptionsテーブルのPostgREST実装。
type SubscriptionTable struct {
	rest
}

// NewSubscriptionTable はSubscriptionTableを生成する。
func NewSubscriptionTable(client *Client, tokens TokenSource) *SubscriptionTable {
	return &SubscriptionTable{rest{client: client, tokens: tokens}}
}

// Create は購読を作成する。idとcreated_atはDBのデフォルト値に任せる。
func (t *SubscriptionTable) Create(ctx context.Context, sub *model.Subscription) (*model.Subscription, error) {
	var created model.Subscription
	err := t.call(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/subscriptions",
		body: map[string]any{
			"user_id":     sub.UserID,
			"status":      sub.Status,
			"plan_id":     sub.PlanID,
			"amount_paid": sub.AmountPaid,
			"valid_until": sub.ValidUntil.UTC().Format(time.RFC3339),
		},
		headers: map[string]string{
			"Accept": objectAccept,
			"Prefer": "return=representation",
		},
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to insert subscription: %w", err)
	}
	return &created, nil
}

// LatestByUserID はユーザーの最新の購読を返す。購読が無い場合はPGRST116が返る。
func (t *SubscriptionTable) LatestByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := t.call(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/subscriptions?select=*&user_id=" + eq(userID) + "&order=created_at.desc&limit=1",
		headers: map[string]string{"Accept": objectAccept},
	}, &sub)
	if err != nil {
		return nil, fmt.Errorf("failed to find latest subscription: %w", err)
	}
	return &sub, nil
}

// CourseTable はcourses・course_contentテーブルのPostgREST実装。
type CourseTable struct {
	rest
}

// NewCourseTable はCourseTableを生成する。
func NewCourseTable(client *Client, tokens TokenSource) *CourseTable {
	return &CourseTable{rest{client: client, tokens: tokens}}
}

// List は全コースをID昇順で返す。
func (t *CourseTable) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := t.call(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/courses?select=*&order=id.asc",
	}, &courses)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// FindByID は指定IDのコースを取得する。
func (t *CourseTable) FindByID(ctx context.Context, id int64) (*model.Course, error) {
	var c model.Course
	err := t.call(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/courses?select=*&id=" + eq(strconv.FormatInt(id, 10)),
		headers: map[string]string{"Accept": objectAccept},
	}, &c)
	if err != nil {
		return nil, fmt.Errorf("failed to find course by ID: %w", err)
	}
	return &c, nil
}

// ContentByCourseID はコースの内容をID昇順で返す。
func (t *CourseTable) ContentByCourseID(ctx context.Context, courseID int64) ([]model.CourseContent, error) {
	var contents []model.CourseContent
	err := t.call(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/course_content?select=*&course_id=" + eq(strconv.FormatInt(courseID, 10)) + "&order=id.asc",
	}, &contents)
	if err != nil {
		return nil, fmt.Errorf("failed to list course content: %w", err)
	}
	return contents, nil
}

// compile-time interface check
var (
	_ repository.ProfileRepository      = (*ProfileTable)(nil)
	_ repository.SubscriptionRepository = (*SubscriptionTable)(nil)
	_ repository.CourseRepository       = (*CourseTable)(nil)
	_ TokenSource                       = (*AuthClient)(nil)
)
