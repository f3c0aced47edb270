package repository

import (
	"context"
	"time"

	"openapp-settlement/internal/domain/model"
)

// IdempotencyRepository guards at-most-once settlement per network payment id.
type IdempotencyRepository interface {
	Find(ctx context.Context, tx Tx, paymentID string) (*model.IdempotencyRecord, error)
	// ClaimPending atomically inserts a pending row for the payment id.
	// claimed=false means a row already exists; callers must re-read it and
	// either replay the completed result or back off.
	ClaimPending(ctx context.Context, tx Tx, rec *model.IdempotencyRecord) (claimed bool, err error)
	// MarkCompleted seals the claim with the txid, merged metadata, and the
	// network's completion result (amount, memo, payload), so duplicates can
	// replay the original response. Must be persisted before downstream side
	// effects run.
	MarkCompleted(ctx context.Context, tx Tx, rec *model.IdempotencyRecord) error
	// ListStalePending returns pending claims older than the cutoff so the
	// reconciler can re-drive crashed settlements.
	ListStalePending(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.IdempotencyRecord, error)
}
