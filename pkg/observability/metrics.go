// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the alertbridge service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// DecisionBuckets defines histogram buckets for decision and mint calls,
// which complete in well under a second.
var DecisionBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1}

var (
	// RequestsTotal counts all HTTP requests by method, route pattern and
	// status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertbridge_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and
	// route pattern.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertbridge_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: DecisionBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthDecisionsTotal counts broker auth callbacks by endpoint
	// (user, superuser, acl) and outcome (allow, deny, bad_request).
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertbridge_auth_decisions_total",
			Help: "Broker auth decisions",
		},
		[]string{"endpoint", "outcome"},
	)

	// TokensMintedTotal counts issued tokens by principal kind.
	TokensMintedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertbridge_tokens_minted_total",
			Help: "Tokens minted",
		},
		[]string{"kind"},
	)

	// BrokerConnected is 1 while the outbound broker connection is up.
	BrokerConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alertbridge_broker_connected",
			Help: "Outbound MQTT connection state",
		},
	)

	// BrokerPublishesTotal counts outbound publishes by status
	// (sent, not_connected, skipped).
	BrokerPublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertbridge_broker_publishes_total",
			Help: "Outbound alert publishes",
		},
		[]string{"status"},
	)

	// RateLimitRejectedTotal counts mint requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alertbridge_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthDecisionsTotal,
		TokensMintedTotal,
		BrokerConnected,
		BrokerPublishesTotal,
		RateLimitRejectedTotal,
	)
}
