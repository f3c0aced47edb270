package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusApproved  PaymentStatus = "approved"  // approve phase done, waiting for txid
	PaymentStatusCompleted PaymentStatus = "completed" // settled against the network
	PaymentStatusCancelled PaymentStatus = "cancelled" // abandoned before completion
)

// PaymentIntent records one external payment attempt. PaymentID is the opaque
// identifier issued by the Pi platform; ID is our own row id, which the
// earnings ledger references so internal bookkeeping survives any change in
// the network's identifier format.
type PaymentIntent struct {
	ID        string // UUID, internal row id
	PaymentID string // network-issued identifier, unique
	UserID    string
	TxID      *string // blockchain transaction id, set at completion
	Amount    decimal.Decimal
	Memo      string
	Status    PaymentStatus
	Metadata  Metadata // serialized in DB as JSONB
	CreatedAt time.Time
	UpdatedAt time.Time
}
