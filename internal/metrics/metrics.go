package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "referral_http_request_duration_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_registrations_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	Approvals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_approvals_total",
			Help: "Approved accounts by assigned role",
		},
		[]string{"role"},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_webhook_deliveries_total",
			Help: "Approval webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	RoleSyncUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_rolesync_updates_total",
			Help: "Role changes applied by event source",
		},
		[]string{"source"},
	)

	NetworkBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "referral_network_build_seconds",
			Help:    "Time spent aggregating a two-level network",
			Buckets: prometheus.DefBuckets,
		},
	)
)
