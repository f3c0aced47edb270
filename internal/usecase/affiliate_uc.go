package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/repository"
)

// Compile-time check
var _ AffiliateUseCase = (*affiliateUC)(nil)

type AffiliateUseCase interface {
	// Track derives the referral reward when a referred profile's paid
	// subscription settles. Inserts a fresh `earned` invite on first
	// settlement, upgrades in place when a higher tier settles later, and
	// never downgrades or touches paid-out invites. Returns nil when the
	// profile has no referrer.
	Track(ctx context.Context, tx repository.Tx, profile *model.Profile, plan model.PlanType, paymentID, txid string) (*model.AffiliateInvite, error)
}

type affiliateUC struct {
	invites repository.AffiliateRepository
	rewards model.RewardTable
	log     *zerolog.Logger
}

func NewAffiliateUseCase(invites repository.AffiliateRepository, rewards model.RewardTable, logger *zerolog.Logger) *affiliateUC {
	if rewards == nil {
		rewards = model.DefaultRewardTable()
	}
	l := logger.With().Str("component", "AffiliateUC").Logger()
	return &affiliateUC{invites: invites, rewards: rewards, log: &l}
}

func (u *affiliateUC) Track(ctx context.Context, tx repository.Tx, profile *model.Profile, plan model.PlanType, paymentID, txid string) (*model.AffiliateInvite, error) {
	if profile == nil {
		return nil, domain.ErrInvalidArgument
	}
	if profile.ReferredBy == nil || *profile.ReferredBy == "" {
		return nil, nil
	}
	reward := u.rewards.RewardFor(plan)
	if reward.IsZero() {
		return nil, nil
	}

	existing, err := u.invites.FindByReferredProfile(ctx, tx, profile.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		now := time.Now().UTC()
		inv := &model.AffiliateInvite{
			ID:                uuid.NewString(),
			ReferralCodeID:    profile.ReferredByCodeID,
			ReferrerProfileID: *profile.ReferredBy,
			ReferredProfileID: profile.ID,
			ReferredUsername:  profile.Username,
			PlanType:          plan,
			RewardPi:          reward,
			Status:            model.InviteStatusEarned,
			PaymentID:         paymentID,
			TransactionID:     txid,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := u.invites.Insert(ctx, tx, inv); err != nil {
			return nil, err
		}
		u.log.Info().
			Str("referrer_profile_id", inv.ReferrerProfileID).
			Str("referred_profile_id", profile.ID).
			Str("plan", string(plan)).
			Str("reward_pi", reward.String()).
			Msg("affiliate reward earned")
		return inv, nil
	}

	changed, err := existing.Upgrade(plan, reward, paymentID, txid)
	if err != nil {
		if errors.Is(err, domain.ErrRewardImmutable) {
			// Already paid out; nothing to change.
			return existing, nil
		}
		return nil, err
	}
	if !changed {
		return existing, nil
	}
	if err := u.invites.Update(ctx, tx, existing); err != nil {
		return nil, err
	}
	u.log.Info().
		Str("referred_profile_id", profile.ID).
		Str("plan", string(plan)).
		Str("reward_pi", reward.String()).
		Msg("affiliate reward upgraded")
	return existing, nil
}
