package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/scan"
)

// cacheKinds lists the cache_type label values the pipeline records
var cacheKinds = []string{"analysis"}

// MetricsRegistry holds all Prometheus metrics for the analysis pipeline. It
// implements analyzer.Observer so the pipeline reports faults and cache
// traffic through it, and scan.Sink so completed sweeps update the scan
// gauges.
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Analysis metrics
	AnalysisDuration prometheus.Histogram
	AnalysesTotal    prometheus.Counter

	// Fault counters by pipeline stage
	ProviderFaults *prometheus.CounterVec
	ScorerFaults   *prometheus.CounterVec
	DetectorFaults *prometheus.CounterVec

	// Cache performance metrics
	CacheHitRatio prometheus.Gauge
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	// Scan sweep metrics
	ScansTotal   prometheus.Counter
	ScanDuration prometheus.Histogram
	ScanAnalyzed prometheus.Gauge
	ScanFailed   prometheus.Gauge
	ScanAlerts   prometheus.Gauge
}

// NewMetricsRegistry creates a metrics registry with all pipeline metrics.
// Each registry carries its own Prometheus registry so independent servers
// never collide on registration.
func NewMetricsRegistry() *MetricsRegistry {
	registry := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockrun_analysis_duration_seconds",
				Help:    "Duration of single-symbol analyses in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		),

		AnalysesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockrun_analyses_total",
				Help: "Total number of completed symbol analyses",
			},
		),

		ProviderFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrun_provider_faults_total",
				Help: "Total provider failures that forced default data, by provider",
			},
			[]string{"provider"},
		),

		ScorerFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrun_scorer_faults_total",
				Help: "Total scorer failures that forced a zero component score",
			},
			[]string{"component"},
		),

		DetectorFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrun_detector_faults_total",
				Help: "Total divergence detector failures, by detector",
			},
			[]string{"detector"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockrun_cache_hit_ratio",
				Help: "Current cache hit ratio (0.0 to 1.0)",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrun_cache_hits_total",
				Help: "Total number of cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockrun_cache_misses_total",
				Help: "Total number of cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		ScansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockrun_scans_total",
				Help: "Total number of completed watchlist sweeps",
			},
		),

		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockrun_scan_duration_seconds",
				Help:    "Duration of full watchlist sweeps in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
		),

		ScanAnalyzed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockrun_scan_analyzed",
				Help: "Symbols analyzed in the most recent sweep",
			},
		),

		ScanFailed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockrun_scan_failed",
				Help: "Symbols that failed in the most recent sweep",
			},
		),

		ScanAlerts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockrun_scan_alerts",
				Help: "Alerts produced by the most recent sweep",
			},
		),
	}

	registry.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		registry.AnalysisDuration,
		registry.AnalysesTotal,
		registry.ProviderFaults,
		registry.ScorerFaults,
		registry.DetectorFaults,
		registry.CacheHitRatio,
		registry.CacheHits,
		registry.CacheMisses,
		registry.ScansTotal,
		registry.ScanDuration,
		registry.ScanAnalyzed,
		registry.ScanFailed,
		registry.ScanAlerts,
	)

	return registry
}

// RecordProviderFault records a provider failure for the specified provider
func (m *MetricsRegistry) RecordProviderFault(provider string) {
	m.ProviderFaults.WithLabelValues(provider).Inc()
}

// RecordScorerFault records a scorer failure for the specified component
func (m *MetricsRegistry) RecordScorerFault(component string) {
	m.ScorerFaults.WithLabelValues(component).Inc()
}

// RecordDetectorFault records a divergence detector failure
func (m *MetricsRegistry) RecordDetectorFault(detector string) {
	m.DetectorFaults.WithLabelValues(detector).Inc()
}

// RecordAnalysis records one completed symbol analysis
func (m *MetricsRegistry) RecordAnalysis(symbol string, took time.Duration) {
	m.AnalysesTotal.Inc()
	m.AnalysisDuration.Observe(took.Seconds())

	log.Debug().
		Str("symbol", symbol).
		Dur("duration", took).
		Msg("Analysis completed")
}

// RecordCacheHit records a cache hit for the specified cache type
func (m *MetricsRegistry) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabelValues(cacheType).Inc()
	m.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss for the specified cache type
func (m *MetricsRegistry) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabelValues(cacheType).Inc()
	m.updateCacheHitRatio()
}

// ScanCompleted records sweep-level metrics from a finished report
func (m *MetricsRegistry) ScanCompleted(report *scan.Report) {
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(report.Duration.Seconds())
	m.ScanAnalyzed.Set(float64(report.Analyzed))
	m.ScanFailed.Set(float64(report.Failed))
	m.ScanAlerts.Set(float64(len(report.Alerts)))
}

// updateCacheHitRatio calculates and updates the cache hit ratio
func (m *MetricsRegistry) updateCacheHitRatio() {
	hitMetric := &io_prometheus_client.Metric{}
	missMetric := &io_prometheus_client.Metric{}

	totalHits := 0.0
	totalMisses := 0.0

	for _, cacheType := range cacheKinds {
		if hitCounter, err := m.CacheHits.GetMetricWithLabelValues(cacheType); err == nil {
			if err := hitCounter.Write(hitMetric); err == nil {
				totalHits += hitMetric.GetCounter().GetValue()
			}
		}

		if missCounter, err := m.CacheMisses.GetMetricWithLabelValues(cacheType); err == nil {
			if err := missCounter.Write(missMetric); err == nil {
				totalMisses += missMetric.GetCounter().GetValue()
			}
		}
	}

	total := totalHits + totalMisses
	if total > 0 {
		m.CacheHitRatio.Set(totalHits / total)
	}
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
