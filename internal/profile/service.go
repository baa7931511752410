package profile

import (
	"context"
	"log/slog"

	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/repository"
	"github.com/hitoshi/learnhub/internal/security"
)

// Service はプロフィール画面向けの参照・表示名更新を提供する。
type Service struct {
	repo      repository.ProfileRepository
	sanitizer security.NameSanitizerService
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(repo repository.ProfileRepository, sanitizer security.NameSanitizerService, logger *slog.Logger) *Service {
	if sanitizer == nil {
		sanitizer = security.NewNameSanitizer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sanitizer: sanitizer, logger: logger}
}

// Get はプロフィールを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if model.IsTransport(err) {
			return nil, err
		}
		return nil, model.NewProfileFetchFailedError(err)
	}
	return p, nil
}

// UpdateDisplayName は表示名を更新する。
// サニタイズ後に空になる名前はネットワーク呼び出し前に検証エラーとする。
func (s *Service) UpdateDisplayName(ctx context.Context, userID, name string) (*model.Profile, error) {
	cleaned := s.sanitizer.SanitizeName(name)
	if cleaned == "" {
		return nil, model.NewValidationError("full_name", "Please enter your name.")
	}

	p, err := s.repo.UpdateFullName(ctx, userID, cleaned)
	if err != nil {
		s.logger.Error("failed to update profile",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		if model.IsTransport(err) {
			return nil, err
		}
		return nil, model.NewProfileUpdateFailedError(err)
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return p, nil
}
