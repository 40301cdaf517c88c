// Package scan runs watchlist-wide analysis sweeps and fans the results out
// to the caches, the watchlist store, and any subscribed sinks.
package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/analyzer"
	"github.com/sawpanic/stockrun/internal/domain"
)

// ErrScanRunning is returned when a sweep is requested while another one is
// still in flight.
var ErrScanRunning = errors.New("scan already in progress")

// Report summarizes one completed watchlist sweep
type Report struct {
	StartedAt      time.Time          `json:"started_at"`
	Duration       time.Duration      `json:"duration"`
	Requested      int                `json:"requested"`
	Analyzed       int                `json:"analyzed"`
	Failed         int                `json:"failed"`
	AlertThreshold float64            `json:"alert_threshold"`
	AboveThreshold []string           `json:"above_threshold"`
	Alerts         []domain.Alert     `json:"alerts"`
	Results        []*domain.Analysis `json:"results"`
}

// Sink receives completed scan reports
type Sink interface {
	ScanCompleted(report *Report)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(report *Report)

// ScanCompleted calls f
func (f SinkFunc) ScanCompleted(report *Report) { f(report) }

// AnalysisStore persists finished analyses between processes. Satisfied by
// redisstore.Store.
type AnalysisStore interface {
	CacheAnalysis(ctx context.Context, analysis *domain.Analysis) error
	CacheAlerts(ctx context.Context, symbol string, alerts []domain.Alert) error
	GetCachedAnalysis(ctx context.Context, symbol string) (*domain.Analysis, bool, error)
}

// AnalysisRecorder folds finished analyses into a watchlist store. Satisfied
// by watchlist.Service.
type AnalysisRecorder interface {
	RecordAnalysis(ctx context.Context, analysis *domain.Analysis, alerted bool) (bool, error)
}

// Options configures a scan service. Store and Recorder are optional.
type Options struct {
	Symbols        []string
	AlertThreshold float64
	Store          AnalysisStore
	Recorder       AnalysisRecorder
}

// Status reports the service state for the status surface
type Status struct {
	Scanning   bool      `json:"scanning"`
	Symbols    int       `json:"symbols"`
	Analyzed   int       `json:"analyzed"`
	Failed     int       `json:"failed"`
	AlertCount int       `json:"alert_count"`
	LastScanAt time.Time `json:"last_scan_at"`
	LastScanMS int64     `json:"last_scan_ms"`
}

// Service owns the recurring watchlist sweep and the latest results
type Service struct {
	analyzer  *analyzer.WatchlistAnalyzer
	symbols   []string
	threshold float64
	store     AnalysisStore
	recorder  AnalysisRecorder

	mu       sync.RWMutex
	scanning bool
	latest   map[string]*domain.Analysis
	lastScan *Report
	sinks    []Sink
}

// NewService creates a scan service over wa
func NewService(wa *analyzer.WatchlistAnalyzer, opts Options) *Service {
	return &Service{
		analyzer:  wa,
		symbols:   append([]string(nil), opts.Symbols...),
		threshold: opts.AlertThreshold,
		store:     opts.Store,
		recorder:  opts.Recorder,
		latest:    make(map[string]*domain.Analysis),
	}
}

// AddSink subscribes sink to completed scans
func (s *Service) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Symbols returns the configured scan list
func (s *Service) Symbols() []string {
	return append([]string(nil), s.symbols...)
}

// Scan sweeps the configured watchlist
func (s *Service) Scan(ctx context.Context) (*Report, error) {
	return s.ScanSymbols(ctx, s.symbols)
}

// ScanSymbols sweeps an explicit symbol list. Only one sweep runs at a
// time; concurrent calls fail with ErrScanRunning.
func (s *Service) ScanSymbols(ctx context.Context, symbols []string) (*Report, error) {
	if err := s.beginScan(); err != nil {
		return nil, err
	}
	defer s.endScan()

	start := time.Now()
	log.Info().Int("symbols", len(symbols)).Msg("Starting watchlist scan")

	results, err := s.analyzer.AnalyzeBatch(ctx, symbols)
	if err != nil {
		return nil, err
	}

	report := &Report{
		StartedAt:      start.UTC(),
		Duration:       time.Since(start),
		Requested:      len(symbols),
		Analyzed:       len(results),
		Failed:         len(symbols) - len(results),
		AlertThreshold: s.threshold,
		Results:        results,
	}

	// Results arrive sorted by score, so AboveThreshold stays sorted too.
	for _, analysis := range results {
		report.Alerts = append(report.Alerts, analysis.Alerts...)
		if analysis.CompositeScore != nil && analysis.CompositeScore.TotalScore >= s.threshold {
			report.AboveThreshold = append(report.AboveThreshold, analysis.Symbol)
		}
	}

	s.publish(ctx, report)

	s.mu.Lock()
	for _, analysis := range results {
		s.latest[analysis.Symbol] = analysis
	}
	s.lastScan = report
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.Unlock()

	for _, sink := range sinks {
		sink.ScanCompleted(report)
	}

	log.Info().
		Int("analyzed", report.Analyzed).
		Int("failed", report.Failed).
		Int("alerts", len(report.Alerts)).
		Int("above_threshold", len(report.AboveThreshold)).
		Dur("duration", report.Duration).
		Msg("Watchlist scan completed")

	return report, nil
}

// publish pushes results into the optional store and recorder. Failures are
// logged, never fatal to the scan.
func (s *Service) publish(ctx context.Context, report *Report) {
	for _, analysis := range report.Results {
		alerted := len(analysis.Alerts) > 0 ||
			(analysis.CompositeScore != nil && analysis.CompositeScore.TotalScore >= s.threshold)

		if s.store != nil {
			if err := s.store.CacheAnalysis(ctx, analysis); err != nil {
				log.Warn().Err(err).Str("symbol", analysis.Symbol).Msg("Failed to persist analysis")
			}
			if len(analysis.Alerts) > 0 {
				if err := s.store.CacheAlerts(ctx, analysis.Symbol, analysis.Alerts); err != nil {
					log.Warn().Err(err).Str("symbol", analysis.Symbol).Msg("Failed to persist alerts")
				}
			}
		}

		if s.recorder != nil {
			if _, err := s.recorder.RecordAnalysis(ctx, analysis, alerted); err != nil {
				log.Warn().Err(err).Str("symbol", analysis.Symbol).Msg("Failed to record market data")
			}
		}
	}
}

// Latest returns the newest analysis for symbol, falling back to the store
// when this process has not analyzed it yet
func (s *Service) Latest(ctx context.Context, symbol string) (*domain.Analysis, bool) {
	s.mu.RLock()
	analysis, ok := s.latest[normalizeSymbol(symbol)]
	s.mu.RUnlock()
	if ok {
		return analysis, true
	}

	if s.store != nil {
		cached, found, err := s.store.GetCachedAnalysis(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Analysis store lookup failed")
			return nil, false
		}
		return cached, found
	}
	return nil, false
}

// LatestAll returns the newest analyses, highest score first
func (s *Service) LatestAll() []*domain.Analysis {
	s.mu.RLock()
	analyses := make([]*domain.Analysis, 0, len(s.latest))
	for _, analysis := range s.latest {
		analyses = append(analyses, analysis)
	}
	s.mu.RUnlock()

	return analyzer.TopOpportunities(analyses, 0, 0)
}

// Top returns the analyses scoring at least minScore, best first
func (s *Service) Top(minScore float64, limit int) []*domain.Analysis {
	return analyzer.TopOpportunities(s.LatestAll(), minScore, limit)
}

// AlertsByPriority buckets the latest alerts for presentation
func (s *Service) AlertsByPriority() map[domain.Priority][]domain.Alert {
	return analyzer.AlertsSummary(s.LatestAll())
}

// LastReport returns the most recent scan report, or nil before the first
// sweep finishes
func (s *Service) LastReport() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScan
}

// CurrentStatus reports service state for the status surface
func (s *Service) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Scanning: s.scanning,
		Symbols:  len(s.symbols),
	}
	if s.lastScan != nil {
		status.Analyzed = s.lastScan.Analyzed
		status.Failed = s.lastScan.Failed
		status.AlertCount = len(s.lastScan.Alerts)
		status.LastScanAt = s.lastScan.StartedAt
		status.LastScanMS = s.lastScan.Duration.Milliseconds()
	}
	return status
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *Service) beginScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return ErrScanRunning
	}
	s.scanning = true
	return nil
}

func (s *Service) endScan() {
	s.mu.Lock()
	s.scanning = false
	s.mu.Unlock()
}
