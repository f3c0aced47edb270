package repository

import (
	"context"
	"time"

	"openapp-settlement/internal/domain/model"
)

// PaymentIntentRepository persists payment attempts across all three phases.
type PaymentIntentRepository interface {
	// Insert writes a fresh intent (approve phase).
	Insert(ctx context.Context, tx Tx, p *model.PaymentIntent) error
	// UpsertCompleted advances the intent to completed, creating the row if
	// the approve-phase insert is missing (guest flows). Returns the internal
	// row id the earnings ledger keys on.
	UpsertCompleted(ctx context.Context, tx Tx, p *model.PaymentIntent) (string, error)
	// UpdateStatus moves an existing intent by network payment id.
	UpdateStatus(ctx context.Context, tx Tx, paymentID string, status model.PaymentStatus, txid *string) error
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.PaymentIntent, error)
	// ListApprovedOlderThan feeds the reconciler with stale approved intents.
	ListApprovedOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error)
}
