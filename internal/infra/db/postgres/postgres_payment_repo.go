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

var _ repository.PaymentIntentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, payment_id, user_id, txid, amount, memo, status, metadata, created_at, updated_at`

func (r *paymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	meta, err := marshalMeta(p.Metadata)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO pi_payments (id, payment_id, user_id, txid, amount, memo, status, metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err = execSQL(ctx, r.pool, tx, q, p.ID, p.PaymentID, p.UserID, p.TxID, p.Amount, p.Memo, string(p.Status), meta, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// UpsertCompleted advances the row keyed by the network payment id, creating
// it when the approve-phase insert never happened. RETURNING id hands back
// the internal key the earnings ledger references.
func (r *paymentRepo) UpsertCompleted(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) (string, error) {
	meta, err := marshalMeta(p.Metadata)
	if err != nil {
		return "", err
	}
	const q = `
INSERT INTO pi_payments (id, payment_id, user_id, txid, amount, memo, status, metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (payment_id) DO UPDATE SET
  user_id    = COALESCE(NULLIF(EXCLUDED.user_id, ''), pi_payments.user_id),
  txid       = EXCLUDED.txid,
  amount     = EXCLUDED.amount,
  memo       = COALESCE(NULLIF(EXCLUDED.memo, ''), pi_payments.memo),
  status     = EXCLUDED.status,
  metadata   = EXCLUDED.metadata,
  updated_at = EXCLUDED.updated_at
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, p.ID, p.PaymentID, p.UserID, p.TxID, p.Amount, p.Memo, string(p.Status), meta, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return "", err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		return "", domain.ErrReadDatabaseRow
	}
	return id, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, paymentID string, status model.PaymentStatus, txid *string) error {
	const q = `UPDATE pi_payments SET status=$2, txid=COALESCE($3, txid), updated_at=NOW() WHERE payment_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, paymentID, string(status), txid)
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

func (r *paymentRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.PaymentIntent, error) {
	q := `SELECT ` + paymentColumns + ` FROM pi_payments WHERE payment_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListApprovedOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM pi_payments WHERE status='approved' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*model.PaymentIntent, error) {
	p := &model.PaymentIntent{}
	var meta []byte
	if err := row.Scan(&p.ID, &p.PaymentID, &p.UserID, &p.TxID, &p.Amount, &p.Memo, &p.Status, &meta, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m, err := unmarshalMeta(meta)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	p.Metadata = m
	return p, nil
}
