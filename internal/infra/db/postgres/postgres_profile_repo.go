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

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

const profileColumns = `id, username, referred_by, referred_by_code_id, subscription_plan, subscription_status, expires_at, has_premium`

func (r *profileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, nil, q, id)
	if err != nil {
		return nil, err
	}
	return scanProfile(row)
}

func (r *profileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE username=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, nil, q, username)
	if err != nil {
		return nil, err
	}
	return scanProfile(row)
}

func (r *profileRepo) UpdateSubscriptionMirror(ctx context.Context, profileID string, plan model.PlanType, status model.SubscriptionStatus, expiresAt time.Time, hasPremium bool) error {
	const q = `
UPDATE profiles
   SET subscription_plan=$2, subscription_status=$3, expires_at=$4, has_premium=$5
 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, nil, q, profileID, string(plan), string(status), expiresAt, hasPremium)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	if err := row.Scan(
		&p.ID, &p.Username, &p.ReferredBy, &p.ReferredByCodeID,
		&p.SubscriptionPlan, &p.SubscriptionStatus, &p.ExpiresAt, &p.HasPremium,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
