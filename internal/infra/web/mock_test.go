package web

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/adapter"
	"openapp-settlement/internal/domain/ports/repository"
	"openapp-settlement/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type stubSettlementUC struct {
	approveFn  func(ctx context.Context, req usecase.ApproveRequest) (*adapter.NetworkPayment, error)
	completeFn func(ctx context.Context, req usecase.CompleteRequest) (*usecase.SettlementResult, error)
	verifiedFn func(ctx context.Context, paymentID, txid string, meta model.Metadata) (*usecase.SettlementResult, error)
	cancelFn   func(ctx context.Context, paymentID string) error
}

func (s *stubSettlementUC) Approve(ctx context.Context, req usecase.ApproveRequest) (*adapter.NetworkPayment, error) {
	return s.approveFn(ctx, req)
}

func (s *stubSettlementUC) Complete(ctx context.Context, req usecase.CompleteRequest) (*usecase.SettlementResult, error) {
	return s.completeFn(ctx, req)
}

func (s *stubSettlementUC) CompleteVerified(ctx context.Context, paymentID, txid string, meta model.Metadata) (*usecase.SettlementResult, error) {
	return s.verifiedFn(ctx, paymentID, txid, meta)
}

func (s *stubSettlementUC) Cancel(ctx context.Context, paymentID string) error {
	return s.cancelFn(ctx, paymentID)
}

type stubEarningsUC struct {
	summary *usecase.DeveloperEarnings
	err     error
}

func (s *stubEarningsUC) Record(ctx context.Context, tx repository.Tx, developerID, appID, paymentRowID string, total decimal.Decimal) (*model.EarningsRecord, error) {
	return nil, nil
}

func (s *stubEarningsUC) DeveloperSummary(ctx context.Context, developerID string, limit int) (*usecase.DeveloperEarnings, error) {
	return s.summary, s.err
}

type stubSubscriptionUC struct {
	effective *usecase.EffectiveSubscription
	err       error
}

func (s *stubSubscriptionUC) Activate(ctx context.Context, tx repository.Tx, profile *model.Profile, plan model.PlanType, period model.BillingPeriod, amount decimal.Decimal, paymentID, txid string) (*model.SubscriptionRecord, error) {
	return nil, nil
}

func (s *stubSubscriptionUC) Effective(ctx context.Context, profileID string) (*usecase.EffectiveSubscription, error) {
	return s.effective, s.err
}

func (s *stubSubscriptionUC) ExpireDue(ctx context.Context) (int, error) { return 0, nil }
