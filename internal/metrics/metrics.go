package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Callbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esewa_callbacks_total",
			Help: "eSewa callbacks received, by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)
	Fares = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfid_fares_total",
			Help: "RFID taps processed, by outcome",
		},
		[]string{"outcome"},
	)
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// Outcome labels shared by the callback and fare counters.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

func init() {
	prometheus.MustRegister(Callbacks, Fares, RLRequests, RLBlocked, RequestDuration)
}
