package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics(t *testing.T) {
	HTTPRequestDuration.WithLabelValues("GET", "/api/v1/admin/session", "200").Observe(0.05)

	counter := HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/admin/login", "429")
	before := testutil.ToFloat64(counter)
	counter.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestSecurityCounters(t *testing.T) {
	tests := []struct {
		name    string
		counter prometheus.Counter
	}{
		{"rate_limit_rejected", RateLimitDecisions.WithLabelValues("login", "rejected")},
		{"csrf_invalid", CSRFValidations.WithLabelValues("invalid")},
		{"auth_login_failure", AuthOutcomes.WithLabelValues("login", "failure")},
		{"audit_critical", AuditEventsTotal.WithLabelValues("SUSPICIOUS_ACTIVITY", "critical")},
		{"audit_persist_failure", AuditPersistFailures},
		{"audit_sink_failure", AuditSinkFailures.WithLabelValues("rabbitmq")},
		{"feed_messages", AuditFeedMessagesSent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(tt.counter)
			tt.counter.Inc()
			assert.Equal(t, before+1, testutil.ToFloat64(tt.counter))
		})
	}
}

func TestAuditFeedSubscribers(t *testing.T) {
	AuditFeedSubscribers.Set(0)
	AuditFeedSubscribers.Inc()
	AuditFeedSubscribers.Inc()
	AuditFeedSubscribers.Dec()
	assert.Equal(t, float64(1), testutil.ToFloat64(AuditFeedSubscribers))
}

func TestRegisterActiveSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	sessions := 3

	require.NoError(t, RegisterActiveSessions(reg, func() int { return sessions }))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "admin_sessions_active", families[0].GetName())
	assert.Equal(t, float64(3), families[0].GetMetric()[0].GetGauge().GetValue())

	sessions = 7
	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Equal(t, float64(7), families[0].GetMetric()[0].GetGauge().GetValue())

	assert.Error(t, RegisterActiveSessions(reg, func() int { return 0 }), "duplicate registration")
}
