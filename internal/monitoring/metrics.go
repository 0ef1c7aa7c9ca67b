package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisocial_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minisocial_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minisocial_realtime_connections",
			Help: "Number of open realtime subscriptions",
		},
	)

	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisocial_realtime_events_total",
			Help: "Change events fanned out to subscribers",
		},
		[]string{"table", "type"},
	)

	RealtimeDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minisocial_realtime_slow_subscriber_drops_total",
			Help: "Subscribers disconnected because their buffer was full",
		},
	)

	SyncMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisocial_sync_mutations_total",
			Help: "Optimistic mutations by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	SyncRollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisocial_sync_rollbacks_total",
			Help: "Optimistic mutations reverted after a remote failure",
		},
		[]string{"action"},
	)

	SyncRefetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minisocial_sync_refetches_total",
			Help: "Refetch triggers and executed fetches by stream",
		},
		[]string{"stream", "result"},
	)
)
