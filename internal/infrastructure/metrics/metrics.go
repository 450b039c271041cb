package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Posting metrics
	PostingsCreated  prometheus.Counter
	PostingsReversed prometheus.Counter
	PostingDuration  prometheus.Histogram
	PostingErrors    *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec

	// Account metrics
	AccountsCreated   prometheus.Counter
	AccountOperations *prometheus.CounterVec

	// Outbox metrics
	OutboxEventsEnqueued  *prometheus.CounterVec
	OutboxEventsPublished *prometheus.CounterVec
	OutboxPublishFailures *prometheus.CounterVec
	OutboxPendingEvents   prometheus.Gauge

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections prometheus.Gauge
	DBErrors      *prometheus.CounterVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisErrors     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Posting metrics
		PostingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgersvc_postings_created_total",
			Help: "Total number of transactions posted",
		}),
		PostingsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgersvc_postings_reversed_total",
			Help: "Total number of transactions reversed",
		}),
		PostingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgersvc_posting_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostingErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_posting_errors_total",
				Help: "Total number of posting errors by type",
			},
			[]string{"error_type"},
		),
		StatusTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_status_transitions_total",
				Help: "Total transaction status transitions",
			},
			[]string{"from", "to"},
		),

		// Account metrics
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgersvc_accounts_created_total",
			Help: "Total number of ledger accounts created",
		}),
		AccountOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_account_operations_total",
				Help: "Total account operations by type",
			},
			[]string{"operation"},
		),

		// Outbox metrics
		OutboxEventsEnqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_outbox_events_enqueued_total",
				Help: "Total outbox events written",
			},
			[]string{"event_type"},
		),
		OutboxEventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_outbox_events_published_total",
				Help: "Total outbox events published downstream",
			},
			[]string{"event_type"},
		),
		OutboxPublishFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_outbox_publish_failures_total",
				Help: "Total outbox publish attempts that failed",
			},
			[]string{"event_type"},
		),
		OutboxPendingEvents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledgersvc_outbox_pending_events",
			Help: "Current number of unprocessed outbox events",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgersvc_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_db_queries_total",
				Help: "Total database queries",
			},
			[]string{"operation", "table"},
		),
		DBDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledgersvc_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledgersvc_db_connections",
			Help: "Current number of database connections",
		}),
		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_db_errors_total",
				Help: "Total database errors",
			},
			[]string{"operation"},
		),

		// Redis metrics
		RedisOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_redis_operations_total",
				Help: "Total Redis operations",
			},
			[]string{"operation"},
		),
		RedisErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledgersvc_redis_errors_total",
				Help: "Total Redis errors",
			},
			[]string{"operation"},
		),
	}
}
