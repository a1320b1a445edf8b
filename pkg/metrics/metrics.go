package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|invalid_credentials|not_verified|error).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks refresh token rows that are neither revoked nor expired.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authcore_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// SessionRotations counts refresh rotations by result (rotated|reused|invalid).
	SessionRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_session_rotations_total",
			Help: "Total number of refresh token rotations",
		},
		[]string{"result"},
	)

	// VerificationCodes counts issued and consumed verification codes per kind.
	VerificationCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_verification_codes_total",
			Help: "Verification codes by kind and event",
		},
		[]string{"kind", "event"},
	)

	// EmailFailures counts verification emails that could not be delivered.
	EmailFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_email_failures_total",
			Help: "Verification emails that failed to send",
		},
		[]string{"template"},
	)

	// SweptRows counts rows removed by the maintenance sweeps.
	SweptRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_swept_rows_total",
			Help: "Rows deleted by scheduled cleanup",
		},
		[]string{"table"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "authcore_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
