package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/providers"
	"github.com/sawpanic/stockrun/internal/scoring"
)

var errProviderDown = errors.New("provider down")

func fp(v float64) *float64 { return &v }

// fakeProviders serves fixed snapshots for every symbol, with per-provider
// failure injection and an optional artificial delay.
type fakeProviders struct {
	mu          sync.Mutex
	social      *domain.SocialSnapshot
	technical   *domain.TechnicalSnapshot
	fundamental *domain.FundamentalSnapshot
	analyst     *domain.AnalystSnapshot
	structure   *domain.StructureSnapshot
	fail        map[string]bool
	calls       map[string]int
	delay       time.Duration

	// concurrent social fetches, tracked for the batch concurrency test
	activeSocial    int
	maxActiveSocial int
}

// newFakeProviders returns providers serving a strong short-squeeze setup:
// heavy social chatter at sentiment 0.4, a volume spike on a neutral price
// trend, healthy fundamentals, bullish coverage, and 25% short interest with
// a squeeze sub-score of 70.
func newFakeProviders() *fakeProviders {
	return &fakeProviders{
		social: &domain.SocialSnapshot{
			Platform:           "aggregated",
			Mentions:           500,
			SentimentScore:     0.4,
			VolumeTrend:        domain.TrendBullish,
			TopKeywords:        []string{"squeeze", "moon"},
			InfluencerMentions: 12,
			Timestamp:          time.Now().UTC(),
		},
		technical: &domain.TechnicalSnapshot{
			Price:             25.0,
			Volume:            8_000_000,
			RSI:               62,
			MACDSignal:        domain.TrendBullish,
			BollingerPosition: 0.55,
			MovingAverages:    map[string]float64{"sma_20": 22, "sma_50": 20},
			SupportResistance: map[string]float64{},
			TrendDirection:    domain.TrendNeutral,
			VolumeSpike:       true,
			Timestamp:         time.Now().UTC(),
		},
		fundamental: &domain.FundamentalSnapshot{
			MarketCap:        8_000_000_000,
			PERatio:          fp(18),
			PSRatio:          fp(4.5),
			RevenueGrowthYoY: fp(28),
			ProfitMargin:     fp(16),
			DebtToEquity:     fp(0.45),
			CurrentRatio:     fp(2.1),
			ROE:              fp(18),
			Timestamp:        time.Now().UTC(),
		},
		analyst: &domain.AnalystSnapshot{
			ConsensusRating:   domain.RatingBuy,
			AnalystCount:      12,
			PriceTargetAvg:    33,
			PriceTargetHigh:   40,
			PriceTargetLow:    25,
			PriceTargetUpside: 32,
			RecentUpgrades:    3,
			RecentDowngrades:  1,
			CoveringFirms:     []string{"Goldman Sachs", "Morgan Stanley"},
			Timestamp:         time.Now().UTC(),
		},
		structure: &domain.StructureSnapshot{
			SharesOutstanding:      300_000_000,
			FloatShares:            120_000_000,
			ShortInterest:          25,
			ShortRatio:             4,
			CostToBorrow:           fp(15),
			Utilization:            fp(85),
			DaysToCover:            fp(3.5),
			InstitutionalOwnership: 35,
			InsiderOwnership:       8,
			ShortSqueezeScore:      70,
			Timestamp:              time.Now().UTC(),
		},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
}

func (f *fakeProviders) providerSet() providers.Set {
	return providers.Set{Social: f, Technical: f, Fundamental: f, Analyst: f, Structure: f}
}

func (f *fakeProviders) SetFailure(provider string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[provider] = fail
}

func (f *fakeProviders) callCount(provider string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[provider]
}

func (f *fakeProviders) maxConcurrentSocial() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActiveSocial
}

// enter counts the call and applies the configured artificial delay.
func (f *fakeProviders) enter(ctx context.Context, provider string) error {
	f.mu.Lock()
	f.calls[provider]++
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeProviders) FetchSocial(ctx context.Context, symbol string) (*domain.SocialSnapshot, error) {
	f.mu.Lock()
	f.activeSocial++
	if f.activeSocial > f.maxActiveSocial {
		f.maxActiveSocial = f.activeSocial
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.activeSocial--
		f.mu.Unlock()
	}()

	if err := f.enter(ctx, providers.NameSocial); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[providers.NameSocial] {
		return nil, errProviderDown
	}
	cp := *f.social
	return &cp, nil
}

func (f *fakeProviders) FetchTechnical(ctx context.Context, symbol string) (*domain.TechnicalSnapshot, error) {
	if err := f.enter(ctx, providers.NameTechnical); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[providers.NameTechnical] {
		return nil, errProviderDown
	}
	cp := *f.technical
	return &cp, nil
}

func (f *fakeProviders) FetchFundamental(ctx context.Context, symbol string) (*domain.FundamentalSnapshot, error) {
	if err := f.enter(ctx, providers.NameFundamental); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[providers.NameFundamental] {
		return nil, errProviderDown
	}
	cp := *f.fundamental
	return &cp, nil
}

func (f *fakeProviders) FetchAnalyst(ctx context.Context, symbol string) (*domain.AnalystSnapshot, error) {
	if err := f.enter(ctx, providers.NameAnalyst); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[providers.NameAnalyst] {
		return nil, errProviderDown
	}
	cp := *f.analyst
	return &cp, nil
}

func (f *fakeProviders) FetchStructure(ctx context.Context, symbol string) (*domain.StructureSnapshot, error) {
	if err := f.enter(ctx, providers.NameStructure); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[providers.NameStructure] {
		return nil, errProviderDown
	}
	cp := *f.structure
	return &cp, nil
}

// recordingObserver captures pipeline events for assertions.
type recordingObserver struct {
	mu             sync.Mutex
	providerFaults []string
	scorerFaults   []string
	detectorFaults []string
	analyses       []string
	cacheHits      int
	cacheMisses    int
}

func (r *recordingObserver) RecordProviderFault(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providerFaults = append(r.providerFaults, provider)
}

func (r *recordingObserver) RecordScorerFault(component string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorerFaults = append(r.scorerFaults, component)
}

func (r *recordingObserver) RecordDetectorFault(detector string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectorFaults = append(r.detectorFaults, detector)
}

func (r *recordingObserver) RecordAnalysis(symbol string, took time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, symbol)
}

func (r *recordingObserver) RecordCacheHit(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheHits++
}

func (r *recordingObserver) RecordCacheMiss(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheMisses++
}

func (r *recordingObserver) faults() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.providerFaults...)
}

func (r *recordingObserver) cacheCounts() (hits, misses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cacheHits, r.cacheMisses
}

func newTestAnalyzer(f *fakeProviders, obs Observer) *Analyzer {
	return New(Config{FetchTimeout: time.Second}, f.providerSet(), scoring.DefaultWeights(), nil, obs)
}

// zeroAnalysisTimestamps clears every timestamp so value comparisons see only
// the computed fields.
func zeroAnalysisTimestamps(analysis *domain.Analysis) {
	analysis.AnalyzedAt = time.Time{}
	if s := analysis.Snapshots; s != nil {
		if s.Social != nil {
			s.Social.Timestamp = time.Time{}
		}
		if s.Technical != nil {
			s.Technical.Timestamp = time.Time{}
		}
		if s.Fundamental != nil {
			s.Fundamental.Timestamp = time.Time{}
		}
		if s.Analyst != nil {
			s.Analyst.Timestamp = time.Time{}
		}
		if s.Structure != nil {
			s.Structure.Timestamp = time.Time{}
		}
	}
	if analysis.CompositeScore != nil {
		analysis.CompositeScore.Timestamp = time.Time{}
	}
	for i := range analysis.DivergenceSignals {
		analysis.DivergenceSignals[i].Timestamp = time.Time{}
	}
	for i := range analysis.Alerts {
		analysis.Alerts[i].Timestamp = time.Time{}
	}
}

func TestAnalyzer_Analyze_EndToEndSqueeze(t *testing.T) {
	a := newTestAnalyzer(newFakeProviders(), nil)

	analysis, err := a.Analyze(context.Background(), "GME")
	require.NoError(t, err)
	require.NotNil(t, analysis)

	assert.Equal(t, "GME", analysis.Symbol)
	require.NotNil(t, analysis.CompositeScore)
	assert.InDelta(t, 74.23, analysis.CompositeScore.TotalScore, 0.05)
	assert.Equal(t, domain.OpportunityShortSqueeze, analysis.CompositeScore.OpportunityType)
	assert.Equal(t, domain.RiskLow, analysis.CompositeScore.RiskLevel)
	assert.InDelta(t, 0.8, analysis.CompositeScore.ConfidenceLevel, 1e-9)

	require.Len(t, analysis.DivergenceSignals, 1)
	signal := analysis.DivergenceSignals[0]
	assert.Equal(t, domain.DivergenceShortSqueezeSetup, signal.DivergenceType)
	assert.GreaterOrEqual(t, signal.Strength, 0.5)
	assert.InDelta(t, 0.77, signal.Strength, 1e-9)
	assert.Equal(t, domain.TimeframeShort, signal.Timeframe)

	require.Len(t, analysis.Alerts, 1)
	alert := analysis.Alerts[0]
	assert.Equal(t, domain.DivergenceShortSqueezeSetup, alert.AlertType)
	assert.InDelta(t, analysis.CompositeScore.TotalScore, alert.Score, 1e-9)
	assert.Contains(t, []domain.Priority{domain.PriorityHigh, domain.PriorityMedium}, alert.Priority)
	assert.Equal(t, signal.Description, alert.TriggerReason)
	assert.Equal(t, signal.Catalyst, alert.ShortInterestCatalyst)
	assert.Equal(t, "https://chart-img.com/chart/GME", alert.ChartImageURL)
}

func TestAnalyzer_Analyze_ChartSourceFillsAlertURL(t *testing.T) {
	f := newFakeProviders()
	a := New(Config{}, f.providerSet(), scoring.DefaultWeights(), providers.NewChartImages("test-key"), nil)

	analysis, err := a.Analyze(context.Background(), "gme")
	require.NoError(t, err)
	require.Len(t, analysis.Alerts, 1)

	url := analysis.Alerts[0].ChartImageURL
	assert.Contains(t, url, "symbol=GME")
	assert.Contains(t, url, "short_interest")
	assert.Contains(t, url, "api_key=test-key")
}

func TestAnalyzer_Analyze_Idempotence(t *testing.T) {
	a := newTestAnalyzer(newFakeProviders(), nil)

	first, err := a.Analyze(context.Background(), "GME")
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "GME")
	require.NoError(t, err)

	zeroAnalysisTimestamps(first)
	zeroAnalysisTimestamps(second)
	assert.Equal(t, first, second)
}

func TestAnalyzer_Analyze_ProviderFailureSubstitutesDefault(t *testing.T) {
	f := newFakeProviders()
	f.SetFailure(providers.NameFundamental, true)
	obs := &recordingObserver{}
	a := newTestAnalyzer(f, obs)

	analysis, err := a.Analyze(context.Background(), "GME")
	require.NoError(t, err)

	got := analysis.Snapshots.Fundamental
	require.NotNil(t, got)
	want := domain.DefaultFundamentalSnapshot()
	got.Timestamp = time.Time{}
	want.Timestamp = time.Time{}
	assert.Equal(t, want, got)

	require.NotNil(t, analysis.CompositeScore)
	assert.Greater(t, analysis.CompositeScore.TotalScore, 0.0)
	assert.Equal(t, []string{providers.NameFundamental}, obs.faults())
}

func TestAnalyzer_Analyze_AllProvidersFailing(t *testing.T) {
	f := newFakeProviders()
	for _, provider := range []string{
		providers.NameSocial, providers.NameTechnical, providers.NameFundamental,
		providers.NameAnalyst, providers.NameStructure,
	} {
		f.SetFailure(provider, true)
	}
	obs := &recordingObserver{}
	a := newTestAnalyzer(f, obs)

	analysis, err := a.Analyze(context.Background(), "GME")
	require.NoError(t, err)

	require.NotNil(t, analysis.Snapshots)
	assert.NotNil(t, analysis.Snapshots.Social)
	assert.NotNil(t, analysis.Snapshots.Technical)
	assert.NotNil(t, analysis.Snapshots.Fundamental)
	assert.NotNil(t, analysis.Snapshots.Analyst)
	assert.NotNil(t, analysis.Snapshots.Structure)

	require.NotNil(t, analysis.CompositeScore)
	assert.GreaterOrEqual(t, analysis.CompositeScore.TotalScore, 0.0)
	assert.Empty(t, analysis.DivergenceSignals)
	assert.Len(t, obs.faults(), 5)
}

func TestAnalyzer_Analyze_PartialPayloadWithErrorIsDropped(t *testing.T) {
	f := newFakeProviders()
	set := f.providerSet()
	set.Social = partialSocial{snap: f.social}
	a := New(Config{}, set, scoring.DefaultWeights(), nil, nil)

	analysis, err := a.Analyze(context.Background(), "GME")
	require.NoError(t, err)

	got := analysis.Snapshots.Social
	require.NotNil(t, got)
	want := domain.DefaultSocialSnapshot()
	got.Timestamp = time.Time{}
	want.Timestamp = time.Time{}
	assert.Equal(t, want, got, "payload delivered alongside an error must be discarded")
}

// partialSocial returns a snapshot alongside an error, like a provider that
// fails midway through assembling its result.
type partialSocial struct {
	snap *domain.SocialSnapshot
}

func (p partialSocial) FetchSocial(ctx context.Context, symbol string) (*domain.SocialSnapshot, error) {
	return p.snap, errProviderDown
}

func TestAnalyzer_Analyze_EmptySymbol(t *testing.T) {
	a := newTestAnalyzer(newFakeProviders(), nil)

	_, err := a.Analyze(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestAnalyzer_Analyze_IncompleteProviderSet(t *testing.T) {
	f := newFakeProviders()
	set := f.providerSet()
	set.Fundamental = nil
	a := New(Config{}, set, scoring.DefaultWeights(), nil, nil)

	_, err := a.Analyze(context.Background(), "GME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider set missing fundamental")
}

func TestAnalyzer_Analyze_CanceledContext(t *testing.T) {
	a := newTestAnalyzer(newFakeProviders(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, "GME")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_Analyze_NormalizesSymbol(t *testing.T) {
	a := newTestAnalyzer(newFakeProviders(), nil)

	analysis, err := a.Analyze(context.Background(), "  gme ")
	require.NoError(t, err)
	assert.Equal(t, "GME", analysis.Symbol)
	assert.Equal(t, "GME", analysis.Snapshots.Symbol)
	require.Len(t, analysis.Alerts, 1)
	assert.Equal(t, "GME", analysis.Alerts[0].Symbol)
}

func TestAnalyzer_Evaluate_NilSet(t *testing.T) {
	a := newTestAnalyzer(newFakeProviders(), nil)

	_, err := a.Evaluate(nil)
	assert.ErrorIs(t, err, ErrNilSnapshotSet)
}

func TestAnalyzer_Evaluate_RecordsAnalysisOnlyViaAnalyze(t *testing.T) {
	obs := &recordingObserver{}
	a := newTestAnalyzer(newFakeProviders(), obs)

	_, err := a.Evaluate(&domain.SnapshotSet{
		Symbol:      "GME",
		Social:      domain.DefaultSocialSnapshot(),
		Technical:   domain.DefaultTechnicalSnapshot(),
		Fundamental: domain.DefaultFundamentalSnapshot(),
		Analyst:     domain.DefaultAnalystSnapshot(),
		Structure:   domain.DefaultStructureSnapshot(),
	})
	require.NoError(t, err)
	assert.Empty(t, obs.analyses)

	_, err = a.Analyze(context.Background(), "GME")
	require.NoError(t, err)
	assert.Equal(t, []string{"GME"}, obs.analyses)
}
