package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		earningsPiTotal,
		affiliateRewardsPiTotal,
		subscriptionActivations,
		subscriptionsExpired,
	)
}

var (
	earningsPiTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earnings_pi_total",
			Help: "Ledgered Pi by share (developer/platform).",
		},
		[]string{"share"},
	)

	affiliateRewardsPiTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "affiliate_rewards_pi_total",
			Help: "Total Pi accrued as affiliate rewards.",
		},
	)

	subscriptionActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_activations_total",
			Help: "Subscription periods settled, by plan.",
		},
		[]string{"plan"},
	)

	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions flipped to expired by the sweep.",
		},
	)
)

func AddEarnings(developerShare, platformFee float64) {
	earningsPiTotal.WithLabelValues("developer").Add(developerShare)
	earningsPiTotal.WithLabelValues("platform").Add(platformFee)
}

func AddAffiliateReward(pi float64) { affiliateRewardsPiTotal.Add(pi) }

func IncSubscriptionActivation(plan string) {
	subscriptionActivations.WithLabelValues(norm(plan)).Inc()
}

func IncSubscriptionsExpired(n int) { subscriptionsExpired.Add(float64(n)) }
