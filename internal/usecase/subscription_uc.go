package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
	"openapp-settlement/internal/domain/ports/adapter"
	"openapp-settlement/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// EffectiveSubscription is the read-time view of a profile's plan. Expiry is
// computed here, never eagerly written back by reads.
type EffectiveSubscription struct {
	Plan   model.PlanType
	Status model.SubscriptionStatus
	Record *model.SubscriptionRecord // nil when the profile never subscribed
}

type SubscriptionUseCase interface {
	// Activate upserts one billing period for the profile and synchronously
	// mirrors the subscription columns onto the profile row. A mirror failure
	// is logged and tolerated; the subscription upsert is not rolled back.
	Activate(ctx context.Context, tx repository.Tx, profile *model.Profile, plan model.PlanType, period model.BillingPeriod, amount decimal.Decimal, paymentID, txid string) (*model.SubscriptionRecord, error)
	// Effective resolves the plan a reader should honor right now.
	Effective(ctx context.Context, profileID string) (*EffectiveSubscription, error)
	// ExpireDue marks lapsed rows expired and re-syncs their profile mirrors.
	// Returns how many rows were flipped.
	ExpireDue(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	profiles repository.ProfileRepository
	notifier adapter.Notifier
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, profiles repository.ProfileRepository, notifier adapter.Notifier, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, profiles: profiles, notifier: notifier, log: &l}
}

func (u *subscriptionUC) Activate(ctx context.Context, tx repository.Tx, profile *model.Profile, plan model.PlanType, period model.BillingPeriod, amount decimal.Decimal, paymentID, txid string) (*model.SubscriptionRecord, error) {
	if profile == nil {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := model.NewSubscriptionRecord(profile.ID, plan, period, amount, paymentID, txid, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := u.subs.Upsert(ctx, tx, sub); err != nil {
		return nil, err
	}

	// The mirror write is independent; losing it leaves a known
	// inconsistency window that the expiry sweep heals.
	if err := u.profiles.UpdateSubscriptionMirror(ctx, profile.ID, sub.PlanType, sub.Status, sub.EndDate, sub.PlanType.Paid()); err != nil {
		u.log.Error().Err(err).
			Str("profile_id", profile.ID).
			Str("payment_id", paymentID).
			Msg("profile mirror update failed after subscription upsert")
	}

	u.log.Info().
		Str("profile_id", profile.ID).
		Str("plan", string(plan)).
		Str("billing_period", string(period)).
		Time("end_date", sub.EndDate).
		Msg("subscription activated")

	if u.notifier != nil {
		if err := u.notifier.NotifySubscription(ctx, sub); err != nil {
			u.log.Warn().Err(err).Str("profile_id", profile.ID).Msg("subscription notification failed")
		}
	}
	return sub, nil
}

func (u *subscriptionUC) Effective(ctx context.Context, profileID string) (*EffectiveSubscription, error) {
	sub, err := u.subs.FindByProfile(ctx, nil, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &EffectiveSubscription{Plan: model.PlanFree, Status: model.SubscriptionStatusExpired}, nil
		}
		return nil, err
	}
	now := time.Now().UTC()
	return &EffectiveSubscription{
		Plan:   sub.EffectivePlan(now),
		Status: sub.EffectiveStatus(now),
		Record: sub,
	}, nil
}

func (u *subscriptionUC) ExpireDue(ctx context.Context) (int, error) {
	lapsed, err := u.subs.ListLapsed(ctx, time.Now().UTC(), 200)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, sub := range lapsed {
		if err := u.subs.MarkExpired(ctx, sub.ProfileID); err != nil {
			u.log.Error().Err(err).Str("profile_id", sub.ProfileID).Msg("mark expired failed")
			continue
		}
		if err := u.profiles.UpdateSubscriptionMirror(ctx, sub.ProfileID, model.PlanFree, model.SubscriptionStatusExpired, sub.EndDate, false); err != nil {
			u.log.Error().Err(err).Str("profile_id", sub.ProfileID).Msg("mirror re-sync failed for expired subscription")
		}
		n++
	}
	return n, nil
}
