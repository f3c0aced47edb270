package repository

import (
	"context"
	"time"

	"openapp-settlement/internal/domain/model"
)

// SubscriptionRepository holds the single subscription row per profile.
type SubscriptionRepository interface {
	Upsert(ctx context.Context, tx Tx, sub *model.SubscriptionRecord) error
	FindByProfile(ctx context.Context, tx Tx, profileID string) (*model.SubscriptionRecord, error)
	// ListLapsed returns rows still marked active whose end date has passed.
	ListLapsed(ctx context.Context, cutoff time.Time, limit int) ([]*model.SubscriptionRecord, error)
	MarkExpired(ctx context.Context, profileID string) error
}
