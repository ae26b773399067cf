package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FieldCryptOperations counts encrypted column operations by outcome
	// (encrypt|encrypt_error|decrypt|fallback).
	FieldCryptOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamdash_field_crypt_operations_total",
			Help: "Total number of encrypted field operations",
		},
		[]string{"result"},
	)

	// InvitationEvents records invitation lifecycle transitions (created|accepted|declined|revoked).
	InvitationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamdash_invitation_events_total",
			Help: "Total number of team invitation lifecycle events",
		},
		[]string{"event"},
	)

	// ReencryptRows counts rows visited by the re-encryption sweep (migrated|skipped|unreadable|failed).
	ReencryptRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamdash_reencrypt_rows_total",
			Help: "Rows processed by the encrypted field re-encryption sweep",
		},
		[]string{"result"},
	)

	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamdash_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamdash_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
