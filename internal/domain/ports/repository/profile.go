package repository

import (
	"context"
	"time"

	"openapp-settlement/internal/domain/model"
)

// ProfileRepository reads the profile directory and writes the subscription
// mirror columns.
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	FindByUsername(ctx context.Context, username string) (*model.Profile, error)
	UpdateSubscriptionMirror(ctx context.Context, profileID string, plan model.PlanType, status model.SubscriptionStatus, expiresAt time.Time, hasPremium bool) error
}
