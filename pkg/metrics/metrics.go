package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endor_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// InvitesCreated counts invites persisted by the invite lifecycle.
	InvitesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "endor_invites_created_total",
			Help: "Total number of invites created",
		},
	)

	// InviteTransitions counts status transitions away from open, labelled by target status.
	InviteTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endor_invite_transitions_total",
			Help: "Total number of invite status transitions",
		},
		[]string{"status"},
	)

	// InviteNotifications counts invitation email attempts (sent|skipped|failed).
	InviteNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endor_invite_notifications_total",
			Help: "Total number of invite notification attempts",
		},
		[]string{"result"},
	)

	// MembershipChanges counts owner/contributor mutations.
	MembershipChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endor_membership_changes_total",
			Help: "Total number of project membership changes",
		},
		[]string{"role", "action"},
	)

	// IntegrationCalls counts upstream provider calls by outcome.
	IntegrationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endor_integration_calls_total",
			Help: "Total number of calls to third-party integrations",
		},
		[]string{"provider", "result"},
	)

	// OwnershipChecks counts project-owner authorization decisions (allowed|denied|error).
	OwnershipChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endor_ownership_checks_total",
			Help: "Total number of project ownership checks",
		},
		[]string{"result"},
	)

	// MaintenanceRuns counts scheduled maintenance jobs by job and outcome.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endor_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "endor_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
