package usecase

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/adapter"
	"openapp-settlement/internal/domain/ports/repository"
)

// Compile-time check
var _ EarningsUseCase = (*earningsUC)(nil)

// DeveloperEarnings is the dashboard view of a developer's ledger.
type DeveloperEarnings struct {
	DeveloperID string
	Totals      *repository.DeveloperTotals
	Recent      []*model.EarningsRecord
}

type EarningsUseCase interface {
	// Record appends a 70/30 split for a completed purchase, keyed to the
	// internal payment row id.
	Record(ctx context.Context, tx repository.Tx, developerID, appID, paymentRowID string, total decimal.Decimal) (*model.EarningsRecord, error)
	// DeveloperSummary returns totals plus the most recent ledger rows.
	DeveloperSummary(ctx context.Context, developerID string, limit int) (*DeveloperEarnings, error)
}

type earningsUC struct {
	ledger   repository.EarningsRepository
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewEarningsUseCase(ledger repository.EarningsRepository, notifier adapter.Notifier, logger *zerolog.Logger) *earningsUC {
	l := logger.With().Str("component", "EarningsUC").Logger()
	return &earningsUC{ledger: ledger, notifier: notifier, log: &l}
}

func (u *earningsUC) Record(ctx context.Context, tx repository.Tx, developerID, appID, paymentRowID string, total decimal.Decimal) (*model.EarningsRecord, error) {
	rec, err := model.NewEarningsSplit(ulid.Make().String(), developerID, appID, paymentRowID, total)
	if err != nil {
		return nil, err
	}
	if err := u.ledger.Insert(ctx, tx, rec); err != nil {
		return nil, err
	}
	u.log.Info().
		Str("developer_id", developerID).
		Str("app_id", appID).
		Str("payment_row_id", paymentRowID).
		Str("developer_share", rec.DeveloperShare.String()).
		Msg("earnings recorded")

	if u.notifier != nil {
		if err := u.notifier.NotifyEarnings(ctx, rec); err != nil {
			u.log.Warn().Err(err).Str("developer_id", developerID).Msg("earnings notification failed")
		}
	}
	return rec, nil
}

func (u *earningsUC) DeveloperSummary(ctx context.Context, developerID string, limit int) (*DeveloperEarnings, error) {
	if limit <= 0 {
		limit = 50
	}
	totals, err := u.ledger.TotalsByDeveloper(ctx, developerID)
	if err != nil {
		return nil, err
	}
	recent, err := u.ledger.ListByDeveloper(ctx, developerID, limit)
	if err != nil {
		return nil, err
	}
	return &DeveloperEarnings{DeveloperID: developerID, Totals: totals, Recent: recent}, nil
}
