package repository

import "context"

// ListingRepository covers the one write the settlement flow makes against
// the app-directory side: flipping a draft to paid after an app_listing fee
// settles.
type ListingRepository interface {
	MarkDraftPaid(ctx context.Context, tx Tx, draftID, paymentID string) error
}
