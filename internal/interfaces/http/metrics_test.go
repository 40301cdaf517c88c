package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/scan"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)

	metric := &io_prometheus_client.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()

	metric := &io_prometheus_client.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func TestMetricsRegistry_RecordsFaults(t *testing.T) {
	m := NewMetricsRegistry()

	m.RecordProviderFault("stocktwits")
	m.RecordProviderFault("stocktwits")
	m.RecordScorerFault("social")
	m.RecordDetectorFault("short_squeeze")

	assert.Equal(t, 2.0, counterValue(t, m.ProviderFaults, "stocktwits"))
	assert.Equal(t, 1.0, counterValue(t, m.ScorerFaults, "social"))
	assert.Equal(t, 1.0, counterValue(t, m.DetectorFaults, "short_squeeze"))
}

func TestMetricsRegistry_CacheHitRatio(t *testing.T) {
	m := NewMetricsRegistry()

	m.RecordCacheHit("analysis")
	m.RecordCacheHit("analysis")
	m.RecordCacheMiss("analysis")

	assert.Equal(t, 2.0, counterValue(t, m.CacheHits, "analysis"))
	assert.Equal(t, 1.0, counterValue(t, m.CacheMisses, "analysis"))
	assert.InDelta(t, 2.0/3.0, gaugeValue(t, m.CacheHitRatio), 1e-9)
}

func TestMetricsRegistry_ScanCompleted(t *testing.T) {
	m := NewMetricsRegistry()

	m.ScanCompleted(&scan.Report{
		Duration: 250 * time.Millisecond,
		Analyzed: 8,
		Failed:   2,
		Alerts:   []domain.Alert{{Symbol: "GME", Priority: domain.PriorityHigh}},
	})

	assert.Equal(t, 8.0, gaugeValue(t, m.ScanAnalyzed))
	assert.Equal(t, 2.0, gaugeValue(t, m.ScanFailed))
	assert.Equal(t, 1.0, gaugeValue(t, m.ScanAlerts))
}

func TestMetricsRegistry_Handler(t *testing.T) {
	m := NewMetricsRegistry()
	m.RecordAnalysis("GME", 12*time.Millisecond)
	m.RecordCacheMiss("analysis")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.MetricsHandler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "stockrun_analyses_total")
	assert.Contains(t, body, "stockrun_analysis_duration_seconds")
	assert.Contains(t, body, "stockrun_cache_misses_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsRegistry_IndependentRegistries(t *testing.T) {
	a := NewMetricsRegistry()
	b := NewMetricsRegistry()

	a.RecordProviderFault("yahoo")

	assert.Equal(t, 1.0, counterValue(t, a.ProviderFaults, "yahoo"))
	assert.Equal(t, 0.0, counterValue(t, b.ProviderFaults, "yahoo"))
}
