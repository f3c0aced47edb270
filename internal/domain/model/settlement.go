package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"   // claim written, network completion in flight
	SettlementStatusCompleted SettlementStatus = "completed" // settled; replays short-circuit here
)

// IdempotencyRecord is the single source of truth for "has this payment
// already been settled". One row per network payment id; once Status is
// completed every further completion request for the same id must return the
// recorded result without re-running side effects.
// Amount, Memo, and Payload hold the network's completion result; they are
// written when the record is sealed and let a duplicate request receive the
// same response body as the first.
type IdempotencyRecord struct {
	PaymentID   string
	ProfileID   string
	Status      SettlementStatus
	TxID        string
	Metadata    Metadata
	Amount      decimal.Decimal
	Memo        string
	Payload     json.RawMessage
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Replayable reports whether the record already carries a settled result.
func (r *IdempotencyRecord) Replayable() bool {
	return r != nil && r.Status == SettlementStatusCompleted
}
