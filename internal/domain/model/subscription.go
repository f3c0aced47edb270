package model

import (
	"time"

	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
)

type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanBasic   PlanType = "basic"
	PlanPremium PlanType = "premium"
	PlanPro     PlanType = "pro"
)

// Paid reports whether the plan carries an entitlement beyond the free tier.
func (p PlanType) Paid() bool {
	return p == PlanBasic || p == PlanPremium || p == PlanPro
}

type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingYearly  BillingPeriod = "yearly"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// SubscriptionRecord is the single subscription row a profile can hold
// (upsert key = ProfileID). Expiry is computed at read time via
// EffectivePlan/EffectiveStatus; the stored PlanType keeps the last paid tier
// so billing history stays visible after lapse.
type SubscriptionRecord struct {
	ProfileID     string
	PlanType      PlanType
	BillingPeriod BillingPeriod
	PiAmount      decimal.Decimal
	StartDate     time.Time
	EndDate       time.Time
	Status        SubscriptionStatus
	AutoRenew     bool
	PaymentID     string // network payment id that settled this period
	TransactionID string
	PaymentMethod string
}

// NewSubscriptionRecord activates one billing period starting now.
func NewSubscriptionRecord(profileID string, plan PlanType, period BillingPeriod, amount decimal.Decimal, paymentID, txid string, now time.Time) (*SubscriptionRecord, error) {
	if profileID == "" || !plan.Paid() {
		return nil, domain.ErrInvalidArgument
	}
	if period != BillingMonthly && period != BillingYearly {
		period = BillingMonthly
	}
	return &SubscriptionRecord{
		ProfileID:     profileID,
		PlanType:      plan,
		BillingPeriod: period,
		PiAmount:      amount,
		StartDate:     now,
		EndDate:       PeriodEnd(now, period),
		Status:        SubscriptionStatusActive,
		AutoRenew:     true,
		PaymentID:     paymentID,
		TransactionID: txid,
		PaymentMethod: "pi_network",
	}, nil
}

// PeriodEnd returns the end of one billing period started at `start`.
func PeriodEnd(start time.Time, period BillingPeriod) time.Time {
	if period == BillingYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// EffectivePlan yields the plan a reader should honor: the stored tier while
// the period is running, free once EndDate has passed.
func (s *SubscriptionRecord) EffectivePlan(now time.Time) PlanType {
	if s == nil || s.EndDate.Before(now) {
		return PlanFree
	}
	return s.PlanType
}

// EffectiveStatus mirrors EffectivePlan for the status column.
func (s *SubscriptionRecord) EffectiveStatus(now time.Time) SubscriptionStatus {
	if s == nil || s.EndDate.Before(now) {
		return SubscriptionStatusExpired
	}
	return s.Status
}
