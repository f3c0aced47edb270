package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain/model"
)

// DeveloperTotals aggregates a developer's ledger.
type DeveloperTotals struct {
	Gross          decimal.Decimal
	DeveloperShare decimal.Decimal
	PlatformFee    decimal.Decimal
	Purchases      int
}

// EarningsRepository is the append-only revenue ledger.
type EarningsRepository interface {
	Insert(ctx context.Context, tx Tx, rec *model.EarningsRecord) error
	ListByDeveloper(ctx context.Context, developerID string, limit int) ([]*model.EarningsRecord, error)
	TotalsByDeveloper(ctx context.Context, developerID string) (*DeveloperTotals, error)
}
