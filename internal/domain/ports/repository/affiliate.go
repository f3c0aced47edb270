package repository

import (
	"context"

	"openapp-settlement/internal/domain/model"
)

// AffiliateRepository tracks one invite per referred profile.
type AffiliateRepository interface {
	FindByReferredProfile(ctx context.Context, tx Tx, referredProfileID string) (*model.AffiliateInvite, error)
	Insert(ctx context.Context, tx Tx, inv *model.AffiliateInvite) error
	// Update persists an upgraded reward in place.
	Update(ctx context.Context, tx Tx, inv *model.AffiliateInvite) error
}
