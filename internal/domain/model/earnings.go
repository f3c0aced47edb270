package model

import (
	"time"

	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
)

// Revenue split applied to every paid app purchase: 70% to the developer,
// the remainder to the platform.
var developerShareRate = decimal.RequireFromString("0.7")

// piScale is the number of decimal places the Pi ledger carries.
const piScale = 7

// EarningsRecord is one append-only ledger row splitting a completed purchase
// into developer and platform shares. PaymentRowID references the internal
// PaymentIntent row, not the network's payment id.
type EarningsRecord struct {
	ID             string // ULID, sortable by creation time
	DeveloperID    string
	AppID          string
	PaymentRowID   string
	TotalAmount    decimal.Decimal
	DeveloperShare decimal.Decimal
	PlatformFee    decimal.Decimal
	CreatedAt      time.Time
}

// NewEarningsSplit builds a ledger row for a completed purchase. The platform
// fee is derived by subtraction so DeveloperShare + PlatformFee always equals
// TotalAmount exactly, even for amounts that do not divide cleanly.
func NewEarningsSplit(id, developerID, appID, paymentRowID string, total decimal.Decimal) (*EarningsRecord, error) {
	if id == "" || developerID == "" || appID == "" || paymentRowID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if total.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	share := total.Mul(developerShareRate).Round(piScale)
	return &EarningsRecord{
		ID:             id,
		DeveloperID:    developerID,
		AppID:          appID,
		PaymentRowID:   paymentRowID,
		TotalAmount:    total,
		DeveloperShare: share,
		PlatformFee:    total.Sub(share),
		CreatedAt:      time.Now().UTC(),
	}, nil
}
