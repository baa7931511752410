// Package profile はIdentityとプロフィール行の1対1対応を保証するロジックを提供する。
package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/learnhub/internal/metrics"
	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/repository"
	"github.com/hitoshi/learnhub/internal/security"
)

// defaultDisplayName はどの候補も得られない場合の表示名。
const defaultDisplayName = "User"

// プロフィール確保の結果（メトリクスのラベル）
const (
	OutcomeExisting  = "existing"
	OutcomeCreated   = "created"
	OutcomeRefetched = "conflict_refetched"
	OutcomeFailed    = "failed"
)

// Bootstrapper は初回ログイン時のプロフィール作成（create-if-missing）を行う。
type Bootstrapper struct {
	repo      repository.ProfileRepository
	sanitizer security.NameSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewBootstrapper はBootstrapperを生成する。sanitizer・metricsはnilでもよい。
func NewBootstrapper(repo repository.ProfileRepository, sanitizer security.NameSanitizerService, m metrics.MetricsCollector, logger *slog.Logger) *Bootstrapper {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{repo: repo, sanitizer: sanitizer, metrics: m, logger: logger}
}

// EnsureProfile はidentityに対応するプロフィールを返す。無ければ作成する。
//
//  1. IDで取得する。
//  2. 「行が存在しない」場合のみ作成する。それ以外の取得エラーは作成せずに失敗とする。
//  3. 作成が一意制約違反になった場合（サインアップと初回ログインの競合など）は1回だけ再取得する。
//     再取得にも失敗した場合はDUPLICATE_PROFILE。それ以外の作成エラーは失敗とする。
func (b *Bootstrapper) EnsureProfile(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	logger := b.logger.With(slog.String("user_id", identity.ID))

	existing, err := b.repo.FindByID(ctx, identity.ID)
	if err == nil {
		b.metrics.RecordProfileBootstrap(OutcomeExisting)
		return existing, nil
	}
	if !model.IsNotFound(err) {
		logger.Error("failed to fetch profile", slog.String("error", err.Error()))
		b.metrics.RecordProfileBootstrap(OutcomeFailed)
		if model.IsTransport(err) {
			return nil, err
		}
		return nil, model.NewProfileFetchFailedError(err)
	}

	created, err := b.repo.Create(ctx, &model.Profile{
		ID:       identity.ID,
		FullName: b.displayName(identity),
		Email:    identity.Email,
	})
	if err == nil {
		logger.Info("profile created")
		b.metrics.RecordProfileBootstrap(OutcomeCreated)
		return created, nil
	}
	if !model.IsConflict(err) {
		logger.Error("failed to create profile", slog.String("error", err.Error()))
		b.metrics.RecordProfileBootstrap(OutcomeFailed)
		if model.IsTransport(err) {
			return nil, err
		}
		return nil, model.NewProfileCreateFailedError(err)
	}

	// 別のフローが先に作成した。その行を正とする。
	logger.Info("profile created concurrently, re-fetching")
	existing, refetchErr := b.repo.FindByID(ctx, identity.ID)
	if refetchErr != nil {
		logger.Error("failed to re-fetch profile after conflict", slog.String("error", refetchErr.Error()))
		b.metrics.RecordProfileBootstrap(OutcomeFailed)
		return nil, model.NewDuplicateProfileError(identity.ID, refetchErr)
	}
	b.metrics.RecordProfileBootstrap(OutcomeRefetched)
	return existing, nil
}

func (b *Bootstrapper) displayName(identity model.Identity) string {
	name := DisplayName(identity)
	if b.sanitizer == nil {
		return name
	}
	if cleaned := b.sanitizer.SanitizeName(name); cleaned != "" {
		return cleaned
	}
	return defaultDisplayName
}

// DisplayName はプロバイダーのメタデータから表示名を決める。
// 優先順位: full_name/name > user_name/preferred_username > メールアドレスのローカル部 > "User"
// 空白のみの値は無いものとして扱う。
func DisplayName(identity model.Identity) string {
	for _, key := range []string{"full_name", "name", "user_name", "preferred_username"} {
		if v := identity.MetadataString(key); v != "" {
			return v
		}
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(identity.Email), "@"); ok && local != "" {
		return local
	}
	return defaultDisplayName
}
