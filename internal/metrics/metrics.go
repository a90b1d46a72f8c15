package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mcourse"

const (
	OutcomeOK          = "ok"
	OutcomeOTPRequired = "otp_required"
)

var (
	AuthTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_transitions_total",
			Help:      "Authentication state machine transitions by transition and outcome.",
		},
		[]string{"transition", "outcome"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
		[]string{"method", "path"},
	)

	ExpiredChallengesClearedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_challenges_cleared_total",
			Help:      "OTP challenges cleared by the cleanup job after expiry.",
		},
	)
)

// ObserveTransition records one transition; outcome is OutcomeOK, OutcomeOTPRequired or an error reason.
func ObserveTransition(transition, outcome string) {
	AuthTransitionsTotal.WithLabelValues(transition, outcome).Inc()
}
