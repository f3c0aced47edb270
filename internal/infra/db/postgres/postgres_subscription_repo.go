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
	"openapp-settlement/internal/infra/metrics"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `profile_id, plan_type, billing_period, pi_amount, start_date, end_date, status, auto_renew, payment_id, transaction_id, payment_method`

func (r *subscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, sub *model.SubscriptionRecord) error {
	const q = `
INSERT INTO subscriptions (profile_id, plan_type, billing_period, pi_amount, start_date, end_date, status, auto_renew, payment_id, transaction_id, payment_method)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (profile_id) DO UPDATE SET
  plan_type      = EXCLUDED.plan_type,
  billing_period = EXCLUDED.billing_period,
  pi_amount      = EXCLUDED.pi_amount,
  start_date     = EXCLUDED.start_date,
  end_date       = EXCLUDED.end_date,
  status         = EXCLUDED.status,
  auto_renew     = EXCLUDED.auto_renew,
  payment_id     = EXCLUDED.payment_id,
  transaction_id = EXCLUDED.transaction_id,
  payment_method = EXCLUDED.payment_method;`
	_, err := execSQL(ctx, r.pool, tx, q,
		sub.ProfileID, string(sub.PlanType), string(sub.BillingPeriod), sub.PiAmount,
		sub.StartDate, sub.EndDate, string(sub.Status), sub.AutoRenew,
		sub.PaymentID, sub.TransactionID, sub.PaymentMethod,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	metrics.IncSubscriptionActivation(string(sub.PlanType))
	return nil
}

func (r *subscriptionRepo) FindByProfile(ctx context.Context, tx repository.Tx, profileID string) (*model.SubscriptionRecord, error) {
	q := `SELECT ` + subColumns + ` FROM subscriptions WHERE profile_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, profileID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) ListLapsed(ctx context.Context, cutoff time.Time, limit int) ([]*model.SubscriptionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + subColumns + ` FROM subscriptions WHERE status='active' AND end_date < $1 ORDER BY end_date ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, nil, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SubscriptionRecord
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, profileID string) error {
	const q = `UPDATE subscriptions SET status='expired' WHERE profile_id=$1;`
	tag, err := execSQL(ctx, r.pool, nil, q, profileID)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSubscription(row pgx.Row) (*model.SubscriptionRecord, error) {
	sub := &model.SubscriptionRecord{}
	if err := row.Scan(
		&sub.ProfileID, &sub.PlanType, &sub.BillingPeriod, &sub.PiAmount,
		&sub.StartDate, &sub.EndDate, &sub.Status, &sub.AutoRenew,
		&sub.PaymentID, &sub.TransactionID, &sub.PaymentMethod,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return sub, nil
}
