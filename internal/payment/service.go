package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/learnhub/internal/browser"
	"github.com/hitoshi/learnhub/internal/metrics"
	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/repository"
)

// 決済方式（メトリクスのラベル）
const (
	MethodCard = "card"
	MethodUPI  = "upi"
)

// CardProcessor はカード決済を行うインターフェース。
type CardProcessor interface {
	Charge(ctx context.Context, plan Plan, card Card) error
}

// SimulatedProcessor は一定時間待ってから成功を返す決済処理。
// 実際の決済ゲートウェイとは接続しない。
type SimulatedProcessor struct {
	Delay time.Duration
}

// Charge はDelayだけ待機して成功を返す。ctxがキャンセルされた場合はエラー。
func (p SimulatedProcessor) Charge(ctx context.Context, _ Plan, _ Card) error {
	if p.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Service は決済と購読有効化のビジネスロジックを提供する。
type Service struct {
	subs      repository.SubscriptionRepository
	processor CardProcessor
	opener    browser.Opener
	upi       UPIConfig
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	subs repository.SubscriptionRepository,
	processor CardProcessor,
	opener browser.Opener,
	upi UPIConfig,
	m metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if processor == nil {
		processor = SimulatedProcessor{}
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opener == nil {
		opener = browser.NewLogOpener(logger)
	}
	return &Service{
		subs:      subs,
		processor: processor,
		opener:    opener,
		upi:       upi,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// PayWithCard はカード入力を検証して決済し、購読を有効化する。
// 検証エラーの場合は決済処理もネットワーク呼び出しも行わない。
func (s *Service) PayWithCard(ctx context.Context, userID, planID string, card Card) (*model.Subscription, error) {
	plan, err := FindPlan(planID)
	if err != nil {
		return nil, err
	}
	if err := ValidateCard(card); err != nil {
		s.metrics.RecordPayment(MethodCard, "invalid")
		return nil, err
	}

	logger := s.logger.With(
		slog.String("user_id", userID),
		slog.String("plan_id", plan.ID),
		slog.String("card", maskCardNumber(card.Number)),
	)

	if err := s.processor.Charge(ctx, plan, card); err != nil {
		logger.Warn("card payment declined", slog.String("error", err.Error()))
		s.metrics.RecordPayment(MethodCard, "declined")
		return nil, model.NewPaymentFailedError("Payment was declined.", err)
	}

	sub, err := s.activate(ctx, userID, plan)
	if err != nil {
		logger.Error("failed to activate subscription", slog.String("error", err.Error()))
		s.metrics.RecordPayment(MethodCard, "activation_failed")
		if model.IsTransport(err) {
			return nil, err
		}
		return nil, model.NewPaymentFailedError("Failed to update subscription status", err)
	}

	logger.Info("subscription activated", slog.Time("valid_until", sub.ValidUntil))
	s.metrics.RecordPayment(MethodCard, "success")
	return sub, nil
}

// activate は購読行を作成する。valid_untilは現在時刻にプランの日数を加えた時刻。
func (s *Service) activate(ctx context.Context, userID string, plan Plan) (*model.Subscription, error) {
	sub := &model.Subscription{
		UserID:     userID,
		Status:     model.SubscriptionStatusActive,
		PlanID:     plan.ID,
		AmountPaid: float64(plan.Price),
		ValidUntil: s.now().UTC().Add(time.Duration(plan.Days()) * 24 * time.Hour),
	}
	created, err := s.subs.Create(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return created, nil
}

// UPILink はプランのUPIディープリンクを返す。
func (s *Service) UPILink(planID string) (string, error) {
	plan, err := FindPlan(planID)
	if err != nil {
		return "", err
	}
	return UPILink(s.upi, plan), nil
}

// PayWithUPI はUPIアプリを開く。購読の有効化は行わない。
func (s *Service) PayWithUPI(ctx context.Context, planID string) (string, error) {
	link, err := s.UPILink(planID)
	if err != nil {
		return "", err
	}
	if err := s.opener.Open(ctx, link); err != nil {
		s.metrics.RecordPayment(MethodUPI, "unsupported")
		return "", model.NewPaymentFailedError("UPI payment not supported on this device", err)
	}
	s.metrics.RecordPayment(MethodUPI, "opened")
	return link, nil
}

// ActiveSubscription はユーザーの最新の購読が有効な場合にそれを返す。
// 購読が無い、または期限切れの場合はnilを返す（エラーではない）。
func (s *Service) ActiveSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.subs.LatestByUserID(ctx, userID)
	if err != nil {
		if model.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if !sub.IsActive(s.now()) {
		return nil, nil
	}
	return sub, nil
}
