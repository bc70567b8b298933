package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Security metrics
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limit checks by key prefix and outcome",
		},
		[]string{"prefix", "outcome"},
	)

	CSRFValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csrf_validations_total",
			Help: "CSRF token validations by outcome",
		},
		[]string{"outcome"},
	)

	AuthOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_outcomes_total",
			Help: "Login and session authentication results",
		},
		[]string{"operation", "outcome"},
	)

	// Audit metrics
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit entries recorded by event type and severity",
		},
		[]string{"event_type", "severity"},
	)

	AuditPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_persist_failures_total",
			Help: "Audit entries that could not be written to the document store",
		},
	)

	AuditSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_sink_failures_total",
			Help: "Audit entries a sink failed to deliver",
		},
		[]string{"sink"},
	)

	OpenAPIValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "openapi_validation_failures_total",
			Help: "Requests or responses that did not match the API document",
		},
		[]string{"kind"}, // route, request, response
	)

	// WebSocket metrics
	AuditFeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_feed_subscribers",
			Help: "Number of connected live audit feed clients",
		},
	)

	AuditFeedMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_feed_messages_sent_total",
			Help: "Total number of audit entries pushed to feed clients",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)
)

// RegisterActiveSessions exposes the current session count as a gauge.
// count is called on every scrape.
func RegisterActiveSessions(reg prometheus.Registerer, count func() int) error {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "admin_sessions_active",
			Help: "Number of admin sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	)
	return reg.Register(gauge)
}
