package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ReplicationsTotal.WithLabelValues("t.paired", "ok").Add(9)
	m.ReplicationsTotal.WithLabelValues("t.paired", "failed").Inc()
	m.ActiveRuns.Inc()

	assert.Equal(t, 9.0, testutil.ToFloat64(m.ReplicationsTotal.WithLabelValues("t.paired", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReplicationsTotal.WithLabelValues("t.paired", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRuns))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RunsTotal.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bfda_runs_total{status="success"} 1`)
}
