// Package analyzer orchestrates the full analysis pipeline for one symbol:
// concurrent snapshot collection with per-provider fault isolation, scoring,
// divergence detection, ranking, and alert synthesis.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/alerts"
	"github.com/sawpanic/stockrun/internal/divergence"
	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/providers"
	"github.com/sawpanic/stockrun/internal/scoring"
)

var (
	// ErrEmptySymbol is returned when Analyze is called without a symbol.
	ErrEmptySymbol = errors.New("empty symbol")

	// ErrNilSnapshotSet is returned when Evaluate is handed no snapshots.
	ErrNilSnapshotSet = errors.New("nil snapshot set")
)

// Config tunes the snapshot orchestrator.
type Config struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// DefaultConfig returns the production orchestrator settings.
func DefaultConfig() Config {
	return Config{FetchTimeout: 10 * time.Second}
}

// Observer receives pipeline events for metrics. The HTTP metrics registry
// implements it; a nil observer is replaced with a no-op. Implementations
// must be safe for concurrent use.
type Observer interface {
	RecordProviderFault(provider string)
	RecordScorerFault(component string)
	RecordDetectorFault(detector string)
	RecordAnalysis(symbol string, took time.Duration)
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

type nopObserver struct{}

func (nopObserver) RecordProviderFault(string)           {}
func (nopObserver) RecordScorerFault(string)             {}
func (nopObserver) RecordDetectorFault(string)           {}
func (nopObserver) RecordAnalysis(string, time.Duration) {}
func (nopObserver) RecordCacheHit(string)                {}
func (nopObserver) RecordCacheMiss(string)               {}

// Analyzer runs the end-to-end pipeline for single symbols. It is safe for
// concurrent use.
type Analyzer struct {
	cfg      Config
	provs    providers.Set
	scorer   *scoring.Engine
	detector *divergence.Engine
	synth    *alerts.Synthesizer
	observer Observer
}

// New wires the full pipeline. A nil charts source means alerts carry the
// fallback chart URL; a nil observer disables metrics.
func New(cfg Config, provs providers.Set, weights scoring.Weights, charts alerts.ChartSource, obs Observer) *Analyzer {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Analyzer{
		cfg:      cfg,
		provs:    provs,
		scorer:   scoring.NewEngine(weights),
		detector: divergence.NewEngine(),
		synth:    alerts.NewSynthesizer(charts),
		observer: obs,
	}
}

// Analyze collects the five domain snapshots for symbol and runs the full
// pipeline over them. Provider failures degrade to default snapshots and the
// analysis still completes; the only errors are an empty symbol, a broken
// provider set, or a canceled context.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) (*domain.Analysis, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	if err := a.provs.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis of %s aborted: %w", symbol, err)
	}

	start := time.Now()
	log.Info().Str("symbol", symbol).Msg("starting analysis")

	set, err := a.collectSnapshots(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("analysis of %s aborted: %w", symbol, err)
	}

	analysis, err := a.Evaluate(set)
	if err != nil {
		return nil, err
	}

	took := time.Since(start)
	a.observer.RecordAnalysis(symbol, took)
	log.Info().Str("symbol", symbol).
		Float64("total_score", analysis.CompositeScore.TotalScore).
		Int("signals", len(analysis.DivergenceSignals)).
		Int("alerts", len(analysis.Alerts)).
		Dur("took", took).
		Msg("analysis complete")
	return analysis, nil
}

// Evaluate runs the pure pipeline stages over an already assembled snapshot
// set: scoring, detection, ranking, and alert synthesis. It performs no I/O,
// so results for identical inputs are identical apart from timestamps.
func (a *Analyzer) Evaluate(set *domain.SnapshotSet) (*domain.Analysis, error) {
	if set == nil {
		return nil, ErrNilSnapshotSet
	}

	score, scorerFaults := a.scorer.Score(set)
	for _, f := range scorerFaults {
		a.observer.RecordScorerFault(f.Component)
	}

	signals, detectorFaults := a.detector.DetectAll(set)
	for _, f := range detectorFaults {
		a.observer.RecordDetectorFault(f.Detector)
	}
	ranked := divergence.Rank(signals)

	return &domain.Analysis{
		Symbol:            set.Symbol,
		CompanyName:       set.Symbol,
		Snapshots:         set,
		CompositeScore:    score,
		DivergenceSignals: ranked,
		Alerts:            a.synth.Synthesize(set.Symbol, score, ranked),
		AnalyzedAt:        time.Now().UTC(),
	}, nil
}

// fetchOutcome is one provider result tagged with its domain name. Exactly
// one snapshot field is set on a successful fetch.
type fetchOutcome struct {
	provider    string
	social      *domain.SocialSnapshot
	technical   *domain.TechnicalSnapshot
	fundamental *domain.FundamentalSnapshot
	analyst     *domain.AnalystSnapshot
	structure   *domain.StructureSnapshot
	err         error
}

// collectSnapshots fans the five provider fetches out on goroutines and joins
// them through a buffered channel. A failed fetch never cancels its siblings;
// only the parent context aborts collection.
func (a *Analyzer) collectSnapshots(ctx context.Context, symbol string) (*domain.SnapshotSet, error) {
	const fetchCount = 5
	results := make(chan fetchOutcome, fetchCount)

	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
		snap, err := a.provs.Social.FetchSocial(fetchCtx, symbol)
		results <- fetchOutcome{provider: providers.NameSocial, social: snap, err: err}
	}()
	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
		snap, err := a.provs.Technical.FetchTechnical(fetchCtx, symbol)
		results <- fetchOutcome{provider: providers.NameTechnical, technical: snap, err: err}
	}()
	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
		snap, err := a.provs.Fundamental.FetchFundamental(fetchCtx, symbol)
		results <- fetchOutcome{provider: providers.NameFundamental, fundamental: snap, err: err}
	}()
	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
		snap, err := a.provs.Analyst.FetchAnalyst(fetchCtx, symbol)
		results <- fetchOutcome{provider: providers.NameAnalyst, analyst: snap, err: err}
	}()
	go func() {
		fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
		snap, err := a.provs.Structure.FetchStructure(fetchCtx, symbol)
		results <- fetchOutcome{provider: providers.NameStructure, structure: snap, err: err}
	}()

	set := &domain.SnapshotSet{Symbol: symbol}
	for i := 0; i < fetchCount; i++ {
		select {
		case res := <-results:
			a.install(set, res)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return set, nil
}

// install merges one fetch outcome into the set. This is the single
// substitution point per domain: a failed or empty fetch becomes the domain's
// documented default snapshot.
func (a *Analyzer) install(set *domain.SnapshotSet, res fetchOutcome) {
	if res.err != nil {
		log.Warn().Str("symbol", set.Symbol).Str("provider", res.provider).
			Err(res.err).Msg("snapshot fetch failed, substituting default")
		a.observer.RecordProviderFault(res.provider)
		// Drop any partial payload delivered alongside the error.
		res = fetchOutcome{provider: res.provider}
	}

	switch res.provider {
	case providers.NameSocial:
		set.Social = res.social
		if set.Social == nil {
			set.Social = domain.DefaultSocialSnapshot()
		}
	case providers.NameTechnical:
		set.Technical = res.technical
		if set.Technical == nil {
			set.Technical = domain.DefaultTechnicalSnapshot()
		}
	case providers.NameFundamental:
		set.Fundamental = res.fundamental
		if set.Fundamental == nil {
			set.Fundamental = domain.DefaultFundamentalSnapshot()
		}
	case providers.NameAnalyst:
		set.Analyst = res.analyst
		if set.Analyst == nil {
			set.Analyst = domain.DefaultAnalystSnapshot()
		}
	case providers.NameStructure:
		set.Structure = res.structure
		if set.Structure == nil {
			set.Structure = domain.DefaultStructureSnapshot()
		}
	}
}
