package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/repository"
	"openapp-settlement/internal/infra/metrics"
)

var _ repository.EarningsRepository = (*earningsRepo)(nil)

type earningsRepo struct{ pool *pgxpool.Pool }

func NewEarningsRepo(pool *pgxpool.Pool) *earningsRepo {
	return &earningsRepo{pool: pool}
}

func (r *earningsRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.EarningsRecord) error {
	const q = `
INSERT INTO developer_earnings (id, developer_id, app_id, payment_id, total_amount, developer_share, platform_fee, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, rec.ID, rec.DeveloperID, rec.AppID, rec.PaymentRowID, rec.TotalAmount, rec.DeveloperShare, rec.PlatformFee, rec.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	metrics.AddEarnings(rec.DeveloperShare.InexactFloat64(), rec.PlatformFee.InexactFloat64())
	return nil
}

func (r *earningsRepo) ListByDeveloper(ctx context.Context, developerID string, limit int) ([]*model.EarningsRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, developer_id, app_id, payment_id, total_amount, developer_share, platform_fee, created_at
  FROM developer_earnings
 WHERE developer_id=$1
 ORDER BY id DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, nil, q, developerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.EarningsRecord
	for rows.Next() {
		rec := &model.EarningsRecord{}
		if err := rows.Scan(&rec.ID, &rec.DeveloperID, &rec.AppID, &rec.PaymentRowID, &rec.TotalAmount, &rec.DeveloperShare, &rec.PlatformFee, &rec.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *earningsRepo) TotalsByDeveloper(ctx context.Context, developerID string) (*repository.DeveloperTotals, error) {
	const q = `
SELECT COALESCE(SUM(total_amount),0), COALESCE(SUM(developer_share),0), COALESCE(SUM(platform_fee),0), COUNT(*)
  FROM developer_earnings
 WHERE developer_id=$1;`
	row, err := pickRow(ctx, r.pool, nil, q, developerID)
	if err != nil {
		return nil, err
	}
	t := &repository.DeveloperTotals{}
	if err := row.Scan(&t.Gross, &t.DeveloperShare, &t.PlatformFee, &t.Purchases); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}
