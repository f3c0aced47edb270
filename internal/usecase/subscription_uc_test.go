package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
	"openapp-settlement/internal/domain/model"
)

func TestSubscription_ActivateMirrorsProfile(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	profiles := newMemProfileRepo()
	profiles.add(&model.Profile{ID: "prof-1", Username: "alice"})
	notifier := &fakeNotifier{}
	uc := NewSubscriptionUseCase(subs, profiles, notifier, newTestLogger())

	profile, _ := profiles.FindByID(ctx, "prof-1")
	sub, err := uc.Activate(ctx, nil, profile, model.PlanPro, model.BillingMonthly, decimal.NewFromInt(10), "P1", "T1")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if sub.EndDate.Sub(sub.StartDate) < 27*24*time.Hour {
		t.Errorf("monthly period too short: %s -> %s", sub.StartDate, sub.EndDate)
	}

	prof, _ := profiles.FindByID(ctx, "prof-1")
	if prof.SubscriptionPlan != model.PlanPro || prof.SubscriptionStatus != model.SubscriptionStatusActive || !prof.HasPremium {
		t.Errorf("mirror not synced: %+v", prof)
	}
	if len(notifier.subs) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.subs))
	}
}

func TestSubscription_ActivateToleratesMirrorFailure(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	profiles := newMemProfileRepo()
	profiles.add(&model.Profile{ID: "prof-1", Username: "alice"})
	profiles.mirrorErr = errors.New("profiles table down")
	uc := NewSubscriptionUseCase(subs, profiles, &fakeNotifier{}, newTestLogger())

	profile := &model.Profile{ID: "prof-1", Username: "alice"}
	if _, err := uc.Activate(ctx, nil, profile, model.PlanBasic, model.BillingMonthly, decimal.NewFromInt(3), "P1", "T1"); err != nil {
		t.Fatalf("mirror failure must not fail activation: %v", err)
	}
	if _, err := subs.FindByProfile(ctx, nil, "prof-1"); err != nil {
		t.Error("subscription row must survive mirror failure")
	}
}

func TestSubscription_EffectiveComputesExpiryAtReadTime(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	profiles := newMemProfileRepo()
	uc := NewSubscriptionUseCase(subs, profiles, &fakeNotifier{}, newTestLogger())

	// Row still says active but the period ended yesterday.
	subs.subs["prof-1"] = &model.SubscriptionRecord{
		ProfileID: "prof-1",
		PlanType:  model.PlanPremium,
		Status:    model.SubscriptionStatusActive,
		EndDate:   time.Now().UTC().Add(-24 * time.Hour),
	}

	eff, err := uc.Effective(ctx, "prof-1")
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Plan != model.PlanFree || eff.Status != model.SubscriptionStatusExpired {
		t.Errorf("lapsed subscription must read as free/expired, got %s/%s", eff.Plan, eff.Status)
	}
	if eff.Record == nil || eff.Record.PlanType != model.PlanPremium {
		t.Error("stored tier must remain visible on the record")
	}
}

func TestSubscription_EffectiveNeverSubscribed(t *testing.T) {
	ctx := context.Background()
	uc := NewSubscriptionUseCase(newMemSubRepo(), newMemProfileRepo(), &fakeNotifier{}, newTestLogger())

	eff, err := uc.Effective(ctx, "ghost")
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if eff.Plan != model.PlanFree || eff.Record != nil {
		t.Errorf("unknown profile must read as free with no record, got %+v", eff)
	}
}

func TestSubscription_ExpireDue(t *testing.T) {
	ctx := context.Background()
	subs := newMemSubRepo()
	profiles := newMemProfileRepo()
	profiles.add(&model.Profile{ID: "prof-1", Username: "alice", SubscriptionPlan: model.PlanPro, HasPremium: true})
	profiles.add(&model.Profile{ID: "prof-2", Username: "bob", SubscriptionPlan: model.PlanBasic, HasPremium: true})
	uc := NewSubscriptionUseCase(subs, profiles, &fakeNotifier{}, newTestLogger())

	subs.subs["prof-1"] = &model.SubscriptionRecord{
		ProfileID: "prof-1", PlanType: model.PlanPro,
		Status: model.SubscriptionStatusActive, EndDate: time.Now().UTC().Add(-time.Hour),
	}
	subs.subs["prof-2"] = &model.SubscriptionRecord{
		ProfileID: "prof-2", PlanType: model.PlanBasic,
		Status: model.SubscriptionStatusActive, EndDate: time.Now().UTC().Add(time.Hour),
	}

	n, err := uc.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("expire due: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expiry, got %d", n)
	}

	s1, _ := subs.FindByProfile(ctx, nil, "prof-1")
	if s1.Status != model.SubscriptionStatusExpired {
		t.Error("lapsed row not flipped")
	}
	p1, _ := profiles.FindByID(ctx, "prof-1")
	if p1.SubscriptionPlan != model.PlanFree || p1.HasPremium {
		t.Errorf("mirror not re-synced on expiry: %+v", p1)
	}
	p2, _ := profiles.FindByID(ctx, "prof-2")
	if p2.SubscriptionPlan != model.PlanBasic {
		t.Error("running subscription must be untouched")
	}
}

func TestSubscription_ActivateRejectsFreePlan(t *testing.T) {
	ctx := context.Background()
	uc := NewSubscriptionUseCase(newMemSubRepo(), newMemProfileRepo(), &fakeNotifier{}, newTestLogger())

	_, err := uc.Activate(ctx, nil, &model.Profile{ID: "prof-1"}, model.PlanFree, model.BillingMonthly, decimal.Zero, "P1", "T1")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for free plan, got %v", err)
	}
}
