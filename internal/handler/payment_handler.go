package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/learnhub/internal/middleware"
	"github.com/hitoshi/learnhub/internal/model"
	"github.com/hitoshi/learnhub/internal/payment"
)

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	PayWithCard(ctx context.Context, userID, planID string, card payment.Card) (*model.Subscription, error)
	UPILink(planID string) (string, error)
	PayWithUPI(ctx context.Context, planID string) (string, error)
	ActiveSubscription(ctx context.Context, userID string) (*model.Subscription, error)
}

// PaymentHandler はプラン一覧・決済・購読状態のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
	logger  *slog.Logger
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, logger: loggerOrDefault(logger)}
}

type cardPaymentRequest struct {
	PlanID string       `json:"plan_id"`
	Card   payment.Card `json:"card"`
}

type upiPaymentRequest struct {
	PlanID string `json:"plan_id"`
}

type plansResponse struct {
	Plans         []payment.Plan `json:"plans"`
	DefaultPlanID string         `json:"default_plan_id"`
}

type subscriptionResponse struct {
	Active       bool                `json:"active"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
}

// ListPlans はプラン一覧と既定の選択プランを返す。
// GET /api/plans
func (h *PaymentHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, plansResponse{
		Plans:         payment.Plans(),
		DefaultPlanID: payment.DefaultPlan().ID,
	})
}

// GetUPILink はプランのUPIディープリンクを返す。
// GET /api/plans/{planID}/upi
func (h *PaymentHandler) GetUPILink(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.UPILink(chi.URLParam(r, "planID"))
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

// PayWithCard はカードで決済し、有効化された購読を返す。
// POST /api/payments/card
func (h *PaymentHandler) PayWithCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req cardPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.service.PayWithCard(r.Context(), userID, req.PlanID, req.Card)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscriptionResponse{Active: true, Subscription: sub})
}

// PayWithUPI はUPIアプリを開く。購読は有効化しない。
// POST /api/payments/upi
func (h *PaymentHandler) PayWithUPI(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req upiPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	link, err := h.service.PayWithUPI(r.Context(), req.PlanID)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"url": link})
}

// GetSubscription は有効な購読を返す。無い場合はactive=falseで200を返す。
// GET /api/subscription
func (h *PaymentHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.service.ActiveSubscription(r.Context(), userID)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{Active: sub != nil, Subscription: sub})
}
