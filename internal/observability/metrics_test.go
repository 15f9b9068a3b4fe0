package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_SweepAndEscalations(t *testing.T) {
	m := NewMetrics()

	m.ObserveSweep(3, 1, 1, 1, 20*time.Millisecond)
	m.ObserveSweep(2, 2, 0, 0, 10*time.Millisecond)
	m.IncEscalation(3, "principal")

	assert.Equal(t, float64(5), testutil.ToFloat64(m.sweepIssues.WithLabelValues("scanned")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.sweepIssues.WithLabelValues("escalated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.escalations.WithLabelValues("3", "principal")))
}

func TestMetrics_Requests(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/issues", "GET", 200, time.Millisecond)
	m.RecordRequest("/api/issues", "GET", 200, time.Millisecond)
	m.RecordError("/api/issues/:id", "PUT", "FORBIDDEN")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("/api/issues", "GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("/api/issues/:id", "PUT", "FORBIDDEN")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, 0)
		m.RecordError("/", "GET", "X")
		m.IncEscalation(1, "hod")
		m.ObserveSweep(0, 0, 0, 0, 0)
	})
}
