package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PurposeType tags what a payment pays for. It arrives in the open metadata
// map under the "type" key.
type PurposeType string

const (
	PurposeAppPurchase         PurposeType = "app_purchase"
	PurposeAppSubscriptionRnwl PurposeType = "app_subscription_renewal"
	PurposeAppListing          PurposeType = "app_listing"
	PurposeSubscription        PurposeType = "subscription"
)

// Metadata is the open key/value map carried by a payment intent. Clients put
// purpose tags and foreign keys here; the orchestrator only ever reads the
// well-known keys through the accessors below.
type Metadata map[string]any

func (m Metadata) str(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func (m Metadata) Purpose() PurposeType   { return PurposeType(m.str("type")) }
func (m Metadata) AppID() string          { return m.str("app_id") }
func (m Metadata) DeveloperID() string    { return m.str("developer_id") }
func (m Metadata) DraftID() string        { return m.str("draft_id") }
func (m Metadata) ProfileID() string      { return m.str("profileId") }
func (m Metadata) Username() string       { return m.str("username") }
func (m Metadata) UserID() string         { return m.str("user_id") }
func (m Metadata) SubscriptionPlan() PlanType {
	return PlanType(m.str("subscriptionPlan"))
}
func (m Metadata) BillingPeriod() BillingPeriod {
	return BillingPeriod(m.str("billingPeriod"))
}

// ExpectedAmount reads the caller-declared amount, tolerating both string and
// JSON-number encodings. Used only for soft verification against the network.
func (m Metadata) ExpectedAmount() (decimal.Decimal, bool) {
	if m == nil {
		return decimal.Zero, false
	}
	switch v := m["amount"].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// ExpectedMemo reads the caller-declared memo, if any.
func (m Metadata) ExpectedMemo() string { return m.str("memo") }

// Merge combines a stored snapshot with request metadata. The request wins on
// conflicting keys. Neither input is mutated.
func (m Metadata) Merge(req Metadata) Metadata {
	out := make(Metadata, len(m)+len(req))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range req {
		out[k] = v
	}
	return out
}
