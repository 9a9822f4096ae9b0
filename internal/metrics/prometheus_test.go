package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestMetricsCollector_Counters(t *testing.T) {
	m := NewMetricsCollector("munzi", "test")

	m.IncActiveExchanges()
	m.IncActiveExchanges()
	m.DecActiveExchanges()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveExchanges))

	m.IncLine("REQ", "info", "raw")
	m.IncLine("REQ", "info", "raw")
	m.IncLine("RES", "debug", "secret")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LineCounter.WithLabelValues("REQ", "info", "raw")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LineCounter.WithLabelValues("RES", "debug", "secret")))

	m.IncErrorRecord(intPtr(503))
	m.IncErrorRecord(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorRecords.WithLabelValues("5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorRecords.WithLabelValues("none")))

	m.IncSinkFailure("after_request")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkFailures.WithLabelValues("after_request")))

	m.IncCaptureFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CaptureFailures))

	m.ObserveExchange("GET", 200, 15*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExchangeDuration))
}

func TestMetricsCollector_IndependentRegistries(t *testing.T) {
	a := NewMetricsCollector("munzi", "a")
	b := NewMetricsCollector("munzi", "b")
	a.IncCaptureFailure()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CaptureFailures))
}

func TestMetricsCollector_NilIsNoop(t *testing.T) {
	var m *MetricsCollector
	assert.NotPanics(t, func() {
		m.IncActiveExchanges()
		m.DecActiveExchanges()
		m.ObserveExchange("GET", 200, time.Second)
		m.IncLine("REQ", "info", "raw")
		m.IncCaptureFailure()
		m.IncSinkFailure("enter")
		m.IncErrorRecord(nil)
		m.IncRateLimited("GET /")
	})
	assert.Nil(t, m.Registry())
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "4xx", StatusClass(intPtr(404)))
	assert.Equal(t, "2xx", StatusClass(intPtr(200)))
	assert.Equal(t, "none", StatusClass(nil))
	assert.Equal(t, "none", StatusClass(intPtr(42)))
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector("munzi", "test")
	m.IncRateLimited("POST /hello*")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `munzi_rate_limited_total{app="test",route="POST /hello*"} 1`))
}

func TestMetricsCollector_GetMetricsJSON(t *testing.T) {
	m := NewMetricsCollector("munzi", "test")
	m.IncCaptureFailure()
	m.ObserveExchange("GET", 200, time.Millisecond)

	raw, err := m.GetMetricsJSON()
	require.NoError(t, err)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, "test", resp.AppName)

	failures, ok := resp.Metrics["munzi_capture_failures_total"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1.0, failures["app=test"])

	durations, ok := resp.Metrics["munzi_exchange_duration_seconds"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1.0, durations["app=test,method=GET,status=200|count"])
}
