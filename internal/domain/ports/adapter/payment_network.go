package adapter

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// NetworkStatus is the normalized tri-state of a payment on the Pi platform.
// The wire encodes status either as a plain string or as an object of boolean
// flags; both shapes collapse into this enum before any branching happens.
type NetworkStatus int

const (
	StatusUnknown NetworkStatus = iota
	StatusApproved
	StatusCompleted
	StatusCancelled
)

func (s NetworkStatus) String() string {
	switch s {
	case StatusApproved:
		return "approved"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// NetworkPayment is the provider-agnostic view of a payment as the network
// reports it. The network is ground truth for Amount and Status.
type NetworkPayment struct {
	Identifier string
	Amount     decimal.Decimal
	Memo       string
	Status     NetworkStatus
	TxID       string
	Raw        json.RawMessage // full provider payload, returned to callers verbatim
}

// PaymentNetwork is the hex port for the external payment rail.
type PaymentNetwork interface {
	Name() string

	// Approve marks the payment approved on the network (phase one).
	Approve(ctx context.Context, paymentID string) (*NetworkPayment, error)
	// Get fetches the payment for verification.
	Get(ctx context.Context, paymentID string) (*NetworkPayment, error)
	// Complete finalizes the payment with the blockchain txid. The network
	// treats repeat completion as a stable success.
	Complete(ctx context.Context, paymentID, txid string) (*NetworkPayment, error)
}
