package adapter

import (
	"context"

	"openapp-settlement/internal/domain/model"
)

// Notifier delivers best-effort operational notifications. Failures are the
// caller's to log and swallow; settlement never depends on delivery.
type Notifier interface {
	// NotifyEarnings announces a new ledger row for a developer.
	NotifyEarnings(ctx context.Context, rec *model.EarningsRecord) error
	// NotifySubscription announces a settled subscription period.
	NotifySubscription(ctx context.Context, sub *model.SubscriptionRecord) error
}
