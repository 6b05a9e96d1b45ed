package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by flow (password|google) and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkwell_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"flow", "result"},
	)

	// OTPValidations counts one-time passcode validations by outcome.
	OTPValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkwell_otp_validations_total",
			Help: "Total number of one-time passcode validations",
		},
		[]string{"outcome"},
	)

	// Registrations counts created accounts by origin (local|google).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkwell_registrations_total",
			Help: "Total number of created user accounts",
		},
		[]string{"origin"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inkwell_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
