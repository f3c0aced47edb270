package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/repository"
)

var _ repository.IdempotencyRepository = (*idempotencyRepo)(nil)

type idempotencyRepo struct{ pool *pgxpool.Pool }

func NewIdempotencyRepo(pool *pgxpool.Pool) *idempotencyRepo {
	return &idempotencyRepo{pool: pool}
}

const idemColumns = `payment_id, profile_id, status, txid, metadata, amount, memo, payload, created_at, completed_at`

func (r *idempotencyRepo) Find(ctx context.Context, tx repository.Tx, paymentID string) (*model.IdempotencyRecord, error) {
	q := `SELECT ` + idemColumns + ` FROM payment_idempotency WHERE payment_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanIdem(row)
}

// ClaimPending is the atomic insert-if-absent that closes the check-then-act
// race: the primary key on payment_id makes exactly one caller the claimant.
func (r *idempotencyRepo) ClaimPending(ctx context.Context, tx repository.Tx, rec *model.IdempotencyRecord) (bool, error) {
	meta, err := marshalMeta(rec.Metadata)
	if err != nil {
		return false, err
	}
	const q = `
INSERT INTO payment_idempotency (payment_id, profile_id, status, txid, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (payment_id) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, rec.PaymentID, rec.ProfileID, string(rec.Status), rec.TxID, meta, rec.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *idempotencyRepo) MarkCompleted(ctx context.Context, tx repository.Tx, rec *model.IdempotencyRecord) error {
	m, err := marshalMeta(rec.Metadata)
	if err != nil {
		return err
	}
	const q = `
UPDATE payment_idempotency
   SET status='completed', txid=$2, metadata=$3, amount=$4, memo=$5, payload=$6, completed_at=NOW()
 WHERE payment_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, rec.PaymentID, rec.TxID, m, rec.Amount, rec.Memo, []byte(rec.Payload))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *idempotencyRepo) ListStalePending(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.IdempotencyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + idemColumns + ` FROM payment_idempotency WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.IdempotencyRecord
	for rows.Next() {
		rec, err := scanIdem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanIdem(row pgx.Row) (*model.IdempotencyRecord, error) {
	rec := &model.IdempotencyRecord{}
	var meta, payload []byte
	if err := row.Scan(&rec.PaymentID, &rec.ProfileID, &rec.Status, &rec.TxID, &meta, &rec.Amount, &rec.Memo, &payload, &rec.CreatedAt, &rec.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m, err := unmarshalMeta(meta)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	rec.Metadata = m
	if len(payload) > 0 {
		rec.Payload = payload
	}
	return rec, nil
}
