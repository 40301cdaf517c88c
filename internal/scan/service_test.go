package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/stockrun/internal/analyzer"
	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/providers"
	"github.com/sawpanic/stockrun/internal/scoring"
)

func newTestService(opts Options) *Service {
	a := analyzer.New(analyzer.DefaultConfig(), providers.NewOfflineSet(), scoring.DefaultWeights(), nil, nil)
	wa := analyzer.NewWatchlistAnalyzer(a, analyzer.DefaultWatchlistConfig(), nil)
	return NewService(wa, opts)
}

// fakeStore is an in-memory AnalysisStore for publish tests
type fakeStore struct {
	mu       sync.Mutex
	analyses map[string]*domain.Analysis
	alerts   map[string][]domain.Alert
	fail     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		analyses: make(map[string]*domain.Analysis),
		alerts:   make(map[string][]domain.Alert),
	}
}

func (f *fakeStore) CacheAnalysis(_ context.Context, analysis *domain.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	f.analyses[analysis.Symbol] = analysis
	return nil
}

func (f *fakeStore) CacheAlerts(_ context.Context, symbol string, alerts []domain.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	f.alerts[symbol] = alerts
	return nil
}

func (f *fakeStore) GetCachedAnalysis(_ context.Context, symbol string) (*domain.Analysis, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	analysis, ok := f.analyses[symbol]
	return analysis, ok, nil
}

type recordedAnalysis struct {
	symbol  string
	alerted bool
}

// fakeRecorder captures RecordAnalysis calls
type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedAnalysis
}

func (f *fakeRecorder) RecordAnalysis(_ context.Context, analysis *domain.Analysis, alerted bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedAnalysis{symbol: analysis.Symbol, alerted: alerted})
	return true, nil
}

func TestService_Scan_BuildsReport(t *testing.T) {
	svc := newTestService(Options{
		Symbols:        []string{"GME", "AMC", "TSLA"},
		AlertThreshold: 0,
	})

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, 3, report.Analyzed)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.StartedAt.IsZero())
	assert.Greater(t, report.Duration, time.Duration(0))

	require.Len(t, report.Results, 3)
	for i := 1; i < len(report.Results); i++ {
		prev := report.Results[i-1].CompositeScore.TotalScore
		cur := report.Results[i].CompositeScore.TotalScore
		assert.GreaterOrEqual(t, prev, cur, "results are sorted by score")
	}

	// Threshold zero admits every analyzed symbol, in result order.
	require.Len(t, report.AboveThreshold, 3)
	for i, analysis := range report.Results {
		assert.Equal(t, analysis.Symbol, report.AboveThreshold[i])
	}

	wantAlerts := 0
	for _, analysis := range report.Results {
		wantAlerts += len(analysis.Alerts)
	}
	assert.Len(t, report.Alerts, wantAlerts)
}

func TestService_Scan_ThresholdUnreachable(t *testing.T) {
	svc := newTestService(Options{
		Symbols:        []string{"GME", "AMC"},
		AlertThreshold: 101,
	})

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.AboveThreshold, "scores never exceed 100")
	assert.Equal(t, 2, report.Analyzed)
}

func TestService_Scan_SkipsFailedSymbols(t *testing.T) {
	svc := newTestService(Options{Symbols: []string{"GME", "   ", "AMC"}})

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Requested)
	assert.Equal(t, 2, report.Analyzed)
	assert.Equal(t, 1, report.Failed)
}

func TestService_Scan_PublishesToStoreAndRecorder(t *testing.T) {
	store := newFakeStore()
	recorder := &fakeRecorder{}
	svc := newTestService(Options{
		Symbols:        []string{"GME", "AMC"},
		AlertThreshold: 0,
		Store:          store,
		Recorder:       recorder,
	})

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.analyses, 2)
	assert.Contains(t, store.analyses, "GME")
	assert.Contains(t, store.analyses, "AMC")

	require.Len(t, recorder.records, 2)
	for _, record := range recorder.records {
		assert.True(t, record.alerted, "threshold zero marks every symbol alerted")
	}

	for _, analysis := range report.Results {
		if len(analysis.Alerts) > 0 {
			assert.Contains(t, store.alerts, analysis.Symbol)
		}
	}
}

func TestService_Scan_StoreFailuresAreNonFatal(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	svc := newTestService(Options{Symbols: []string{"GME"}, Store: store})

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Analyzed)
}

func TestService_Scan_CanceledContext(t *testing.T) {
	svc := newTestService(Options{Symbols: []string{"GME", "AMC"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Scan(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, svc.LatestAll())
}

func TestService_Latest(t *testing.T) {
	svc := newTestService(Options{Symbols: []string{"GME"}})

	_, err := svc.Scan(context.Background())
	require.NoError(t, err)

	t.Run("found_with_normalization", func(t *testing.T) {
		analysis, ok := svc.Latest(context.Background(), " gme ")
		require.True(t, ok)
		assert.Equal(t, "GME", analysis.Symbol)
	})

	t.Run("unknown_symbol", func(t *testing.T) {
		_, ok := svc.Latest(context.Background(), "ZZZZ")
		assert.False(t, ok)
	})
}

func TestService_Latest_FallsBackToStore(t *testing.T) {
	store := newFakeStore()
	store.analyses["NVDA"] = &domain.Analysis{
		Symbol:         "NVDA",
		CompositeScore: &domain.CompositeScore{TotalScore: 64.0},
	}

	svc := newTestService(Options{Symbols: []string{"GME"}, Store: store})

	analysis, ok := svc.Latest(context.Background(), "NVDA")
	require.True(t, ok, "store serves symbols this process never analyzed")
	assert.InDelta(t, 64.0, analysis.CompositeScore.TotalScore, 1e-9)
}

func TestService_TopAndAlerts(t *testing.T) {
	svc := newTestService(Options{Symbols: []string{"GME", "AMC", "TSLA"}})

	_, err := svc.Scan(context.Background())
	require.NoError(t, err)

	all := svc.LatestAll()
	require.Len(t, all, 3)

	top := svc.Top(0, 1)
	require.Len(t, top, 1)
	assert.Equal(t, all[0].Symbol, top[0].Symbol)

	buckets := svc.AlertsByPriority()
	for _, priority := range []domain.Priority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		_, ok := buckets[priority]
		assert.True(t, ok, "every priority bucket is present")
	}
}

func TestService_ConcurrentScanRejected(t *testing.T) {
	svc := newTestService(Options{Symbols: []string{"GME"}})

	require.NoError(t, svc.beginScan())
	err := svc.beginScan()
	assert.ErrorIs(t, err, ErrScanRunning)

	svc.endScan()
	assert.NoError(t, svc.beginScan())
	svc.endScan()
}

func TestService_Sink_ReceivesReport(t *testing.T) {
	svc := newTestService(Options{Symbols: []string{"GME"}})

	var (
		mu       sync.Mutex
		received []*Report
	)
	svc.AddSink(SinkFunc(func(report *Report) {
		mu.Lock()
		received = append(received, report)
		mu.Unlock()
	}))

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Same(t, report, received[0])
}

func TestService_CurrentStatus(t *testing.T) {
	svc := newTestService(Options{Symbols: []string{"GME", "AMC"}})

	before := svc.CurrentStatus()
	assert.False(t, before.Scanning)
	assert.Equal(t, 2, before.Symbols)
	assert.True(t, before.LastScanAt.IsZero())

	_, err := svc.Scan(context.Background())
	require.NoError(t, err)

	after := svc.CurrentStatus()
	assert.False(t, after.Scanning)
	assert.Equal(t, 2, after.Analyzed)
	assert.False(t, after.LastScanAt.IsZero())
	assert.GreaterOrEqual(t, after.LastScanMS, int64(0))
}
