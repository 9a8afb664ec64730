package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_console_backend_requests_total",
			Help: "Total number of requests sent to the channel backend by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	BackendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channel_console_backend_request_duration_seconds",
			Help:    "Latency of channel backend requests by operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_console_submissions_total",
			Help: "Channel submissions by mode (create, edit) and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	DryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_console_dry_runs_total",
			Help: "Dry-run message processing requests by outcome.",
		},
		[]string{"outcome"},
	)

	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "channel_console_active_sessions",
			Help: "Current number of open console sessions by kind.",
		},
		[]string{"kind"},
	)

	Channels = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "channel_console_channels",
			Help: "Channels known to the backend at the last refresh, by state.",
		},
		[]string{"state"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_console_errors_total",
			Help: "Total number of errors by component.",
		},
		[]string{"component"},
	)
)
