package analyzer

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/data/cache"
	"github.com/sawpanic/stockrun/internal/domain"
)

// Default thresholds for opportunity filtering, matching the scan defaults.
const (
	DefaultMinScore = 70.0
	DefaultTopLimit = 10
)

// cacheKindAnalysis labels analysis entries in cache hit/miss metrics.
const cacheKindAnalysis = "analysis"

// WatchlistConfig tunes batch analysis across a symbol list.
type WatchlistConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// DefaultWatchlistConfig returns the production batch settings: three
// concurrent analyses, results cached for five minutes.
func DefaultWatchlistConfig() WatchlistConfig {
	return WatchlistConfig{
		MaxConcurrent: 3,
		CacheTTL:      5 * time.Minute,
	}
}

// WatchlistAnalyzer runs full analyses across many symbols with bounded
// concurrency and an optional result cache.
type WatchlistAnalyzer struct {
	analyzer *Analyzer
	cfg      WatchlistConfig
	store    cache.Cache
}

// NewWatchlistAnalyzer creates a batch analyzer. A nil store disables result
// caching.
func NewWatchlistAnalyzer(a *Analyzer, cfg WatchlistConfig, store cache.Cache) *WatchlistAnalyzer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultWatchlistConfig().MaxConcurrent
	}
	return &WatchlistAnalyzer{analyzer: a, cfg: cfg, store: store}
}

// AnalyzeBatch analyzes every symbol with bounded concurrency and returns the
// successful analyses ordered by total score descending. Per-symbol failures
// are logged and skipped; equal scores keep the input symbol order.
func (w *WatchlistAnalyzer) AnalyzeBatch(ctx context.Context, symbols []string) ([]*domain.Analysis, error) {
	log.Info().Strs("symbols", symbols).Msg("starting watchlist batch")

	results := make([]*domain.Analysis, len(symbols))
	var wg sync.WaitGroup

	// Limit concurrency so provider rate budgets survive large watchlists.
	semaphore := make(chan struct{}, w.cfg.MaxConcurrent)

	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				return
			}

			analysis, err := w.analyzeOne(ctx, symbol)
			if err != nil {
				log.Warn().Str("symbol", symbol).Err(err).Msg("symbol analysis failed, skipping")
				return
			}
			results[i] = analysis
		}(i, symbol)
	}
	wg.Wait()

	analyses := make([]*domain.Analysis, 0, len(results))
	for _, analysis := range results {
		if analysis != nil {
			analyses = append(analyses, analysis)
		}
	}
	sort.SliceStable(analyses, func(i, j int) bool {
		return totalScore(analyses[i]) > totalScore(analyses[j])
	})

	log.Info().Int("requested", len(symbols)).Int("analyzed", len(analyses)).
		Msg("watchlist batch complete")

	if err := ctx.Err(); err != nil {
		return analyses, err
	}
	return analyses, nil
}

// analyzeOne serves one symbol from the result cache when fresh, analyzing
// and storing otherwise.
func (w *WatchlistAnalyzer) analyzeOne(ctx context.Context, symbol string) (*domain.Analysis, error) {
	if w.store == nil || w.cfg.CacheTTL <= 0 {
		return w.analyzer.Analyze(ctx, symbol)
	}

	key := analysisCacheKey(symbol)
	if data, ok := w.store.Get(key); ok {
		var cached domain.Analysis
		if err := json.Unmarshal(data, &cached); err == nil {
			w.analyzer.observer.RecordCacheHit(cacheKindAnalysis)
			return &cached, nil
		}
		log.Debug().Str("symbol", symbol).Msg("discarding undecodable cached analysis")
	}
	w.analyzer.observer.RecordCacheMiss(cacheKindAnalysis)

	analysis, err := w.analyzer.Analyze(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(analysis); err == nil {
		w.store.Set(key, data, w.cfg.CacheTTL)
	}
	return analysis, nil
}

func analysisCacheKey(symbol string) string {
	return "analysis:" + strings.ToUpper(strings.TrimSpace(symbol))
}

// TopOpportunities filters analyses scoring at least minScore and returns at
// most limit of them, highest score first. A non-positive limit means no
// limit.
func TopOpportunities(analyses []*domain.Analysis, minScore float64, limit int) []*domain.Analysis {
	opportunities := make([]*domain.Analysis, 0, len(analyses))
	for _, analysis := range analyses {
		if analysis != nil && analysis.CompositeScore != nil && analysis.CompositeScore.TotalScore >= minScore {
			opportunities = append(opportunities, analysis)
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return totalScore(opportunities[i]) > totalScore(opportunities[j])
	})

	if limit > 0 && len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}
	return opportunities
}

// AlertsSummary groups every alert by priority, highest score first within
// each bucket. All three buckets are always present.
func AlertsSummary(analyses []*domain.Analysis) map[domain.Priority][]domain.Alert {
	summary := map[domain.Priority][]domain.Alert{
		domain.PriorityHigh:   {},
		domain.PriorityMedium: {},
		domain.PriorityLow:    {},
	}

	for _, analysis := range analyses {
		if analysis == nil {
			continue
		}
		for _, alert := range analysis.Alerts {
			summary[alert.Priority] = append(summary[alert.Priority], alert)
		}
	}

	for priority := range summary {
		bucket := summary[priority]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Score > bucket[j].Score
		})
	}

	return summary
}

// totalScore is the nil-safe composite total used for ordering.
func totalScore(analysis *domain.Analysis) float64 {
	if analysis == nil || analysis.CompositeScore == nil {
		return 0
	}
	return analysis.CompositeScore.TotalScore
}
