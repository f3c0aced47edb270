package model

import "time"

// Profile is the directory entry for a Pi user. The subscription columns are
// a denormalized mirror of SubscriptionRecord kept in sync at settlement time
// for fast reads.
type Profile struct {
	ID       string
	Username string

	// Referral linkage, set at signup when the user arrived via an invite.
	ReferredBy       *string // referrer profile id
	ReferredByCodeID *string

	// Mirror fields.
	SubscriptionPlan   PlanType
	SubscriptionStatus SubscriptionStatus
	ExpiresAt          *time.Time
	HasPremium         bool
}
