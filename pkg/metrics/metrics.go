package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationAttempts records account registrations by result
	// (accepted|conflict|failure).
	RegistrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "currex_registration_attempts_total",
			Help: "Total number of account registration attempts",
		},
		[]string{"result"},
	)

	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "currex_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// Confirmations counts email confirmation outcomes (success|invalid|replay).
	Confirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "currex_confirmations_total",
			Help: "Total number of email confirmation attempts",
		},
		[]string{"result"},
	)

	// CurrencyUpstream counts calls to the exchange-rate provider by
	// endpoint (list|convert) and result (success|failure).
	CurrencyUpstream = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "currex_currency_upstream_total",
			Help: "Total number of upstream currency data requests",
		},
		[]string{"endpoint", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "currex_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
