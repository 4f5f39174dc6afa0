// Package metrics defines Prometheus metrics for caseqc.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseqc_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseqc_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseqc_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseqc_review_transitions_total",
			Help: "Review transition requests by source status, target status and result",
		},
		[]string{"from", "to", "result"},
	)

	ReviewsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caseqc_reviews_created_total",
			Help: "Reviews opened",
		},
	)

	ChangeEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caseqc_change_log_entries_total",
			Help: "Field corrections recorded",
		},
	)

	CasesFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caseqc_cases_finalized_total",
			Help: "Case outputs finalized on first supervisor approval",
		},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "caseqc_audit_queue_depth",
			Help: "Current asynchronous audit queue depth",
		},
	)

	AuditDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caseqc_audit_dropped_total",
			Help: "Asynchronous audit entries dropped because the queue was full",
		},
	)

	NotifyReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caseqc_notify_reconnects_total",
			Help: "Times the review event listener lost its database connection",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "caseqc_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		TransitionsTotal, ReviewsCreated, ChangeEntriesTotal, CasesFinalized,
		AuditQueueDepth, AuditDropped, NotifyReconnects, WSConnections,
	)
}
