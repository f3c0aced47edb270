package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		settlementsTotal,
		settlementLatency,
		networkCallsTotal,
	)
}

var (
	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement requests by action and outcome (completed/replayed/conflict/failed).",
		},
		[]string{"action", "outcome"},
	)

	settlementLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_latency_ms",
			Help:    "End-to-end settlement handler latency in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"action"},
	)

	networkCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pi_network_calls_total",
			Help: "Outbound Pi platform API calls by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func IncSettlement(action, outcome string) {
	settlementsTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

func ObserveSettlementLatency(action string, ms float64) {
	settlementLatency.WithLabelValues(norm(action)).Observe(ms)
}

func IncNetworkCall(op, result string) {
	networkCallsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
