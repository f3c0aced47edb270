package model

import (
	"time"

	"github.com/shopspring/decimal"

	"openapp-settlement/internal/domain"
)

type InviteStatus string

const (
	InviteStatusEarned InviteStatus = "earned" // reward accrued, not yet paid out
	InviteStatusPaid   InviteStatus = "paid"   // paid out; immutable from here
)

// AffiliateInvite credits a referrer when their referred profile settles a
// paid subscription. At most one invite exists per referred profile; a later
// settlement on a higher tier upgrades the reward in place, a lower tier
// never downgrades it.
type AffiliateInvite struct {
	ID                string // UUID
	ReferralCodeID    *string
	ReferrerProfileID string
	ReferredProfileID string
	ReferredUsername  string
	PlanType          PlanType
	RewardPi          decimal.Decimal
	Status            InviteStatus
	PaymentID         string
	TransactionID     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RewardTable maps a subscription tier to the one-time referral reward in Pi.
type RewardTable map[PlanType]decimal.Decimal

// DefaultRewardTable is the fixed fallback mapping used when config does not
// override the rates.
func DefaultRewardTable() RewardTable {
	return RewardTable{
		PlanPro:     decimal.NewFromInt(3),
		PlanPremium: decimal.NewFromInt(2),
		PlanBasic:   decimal.NewFromInt(1),
		PlanFree:    decimal.Zero,
	}
}

// RewardFor returns the reward for a plan, zero for unknown tiers.
func (t RewardTable) RewardFor(plan PlanType) decimal.Decimal {
	if r, ok := t[plan]; ok {
		return r
	}
	return decimal.Zero
}

// Upgrade replaces plan and reward when the new reward exceeds the stored one.
// It reports whether anything changed and refuses to touch paid invites.
func (i *AffiliateInvite) Upgrade(plan PlanType, reward decimal.Decimal, paymentID, txid string) (bool, error) {
	if i.Status == InviteStatusPaid {
		return false, domain.ErrRewardImmutable
	}
	if !reward.GreaterThan(i.RewardPi) {
		return false, nil
	}
	i.PlanType = plan
	i.RewardPi = reward
	i.PaymentID = paymentID
	i.TransactionID = txid
	i.UpdatedAt = time.Now().UTC()
	return true, nil
}
