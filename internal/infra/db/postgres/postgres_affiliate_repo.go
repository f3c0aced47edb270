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

var _ repository.AffiliateRepository = (*affiliateRepo)(nil)

type affiliateRepo struct{ pool *pgxpool.Pool }

func NewAffiliateRepo(pool *pgxpool.Pool) *affiliateRepo {
	return &affiliateRepo{pool: pool}
}

const inviteColumns = `id, referral_code_id, referrer_profile_id, referred_profile_id, referred_username, plan_type, reward_pi, status, payment_id, transaction_id, created_at, updated_at`

func (r *affiliateRepo) FindByReferredProfile(ctx context.Context, tx repository.Tx, referredProfileID string) (*model.AffiliateInvite, error) {
	q := `SELECT ` + inviteColumns + ` FROM affiliate_invites WHERE referred_profile_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, referredProfileID)
	if err != nil {
		return nil, err
	}
	return scanInvite(row)
}

func (r *affiliateRepo) Insert(ctx context.Context, tx repository.Tx, inv *model.AffiliateInvite) error {
	// referred_profile_id is unique; a concurrent duplicate surfaces as
	// ErrAlreadyExists and the caller re-reads.
	const q = `
INSERT INTO affiliate_invites (id, referral_code_id, referrer_profile_id, referred_profile_id, referred_username, plan_type, reward_pi, status, payment_id, transaction_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (referred_profile_id) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.ReferralCodeID, inv.ReferrerProfileID, inv.ReferredProfileID, inv.ReferredUsername,
		string(inv.PlanType), inv.RewardPi, string(inv.Status), inv.PaymentID, inv.TransactionID,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	metrics.AddAffiliateReward(inv.RewardPi.InexactFloat64())
	return nil
}

func (r *affiliateRepo) Update(ctx context.Context, tx repository.Tx, inv *model.AffiliateInvite) error {
	// Guarded in SQL as well: paid invites and downgrades never change.
	const q = `
UPDATE affiliate_invites
   SET plan_type=$2, reward_pi=$3, payment_id=$4, transaction_id=$5, updated_at=$6
 WHERE referred_profile_id=$1 AND status <> 'paid' AND reward_pi < $3;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		inv.ReferredProfileID, string(inv.PlanType), inv.RewardPi, inv.PaymentID, inv.TransactionID, inv.UpdatedAt,
	)
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

func scanInvite(row pgx.Row) (*model.AffiliateInvite, error) {
	inv := &model.AffiliateInvite{}
	if err := row.Scan(
		&inv.ID, &inv.ReferralCodeID, &inv.ReferrerProfileID, &inv.ReferredProfileID, &inv.ReferredUsername,
		&inv.PlanType, &inv.RewardPi, &inv.Status, &inv.PaymentID, &inv.TransactionID,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return inv, nil
}
