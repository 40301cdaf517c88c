package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/analyzer"
	"github.com/sawpanic/stockrun/internal/config"
	"github.com/sawpanic/stockrun/internal/data/cache"
	"github.com/sawpanic/stockrun/internal/infrastructure/db"
	"github.com/sawpanic/stockrun/internal/persistence/redisstore"
	"github.com/sawpanic/stockrun/internal/providers"
	"github.com/sawpanic/stockrun/internal/scan"
	"github.com/sawpanic/stockrun/internal/watchlist"
)

// app bundles the long-lived services a command wires together: the scan
// service over the analysis pipeline, plus the optional Redis analysis store
// and Postgres watchlist.
type app struct {
	cfg   *config.AppConfig
	scans *scan.Service
	store *redisstore.Store
	dbm   *db.Manager
	watch *watchlist.Service
}

// appOptions selects the optional backends. One-shot commands skip both; the
// API server and the scheduler daemon want everything that is configured.
type appOptions struct {
	withStore bool
	withDB    bool
	observer  analyzer.Observer
}

// buildApp loads configuration and assembles the analysis pipeline:
// guarded providers -> analyzer -> batch analyzer -> scan service.
func buildApp(configDir string, opts appOptions) (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	core := analyzer.New(
		analyzer.Config{FetchTimeout: cfg.Providers.FetchTimeout()},
		buildProviders(cfg.Providers),
		cfg.Weights,
		buildCharts(cfg.Providers.Chart),
		opts.observer,
	)

	wa := analyzer.NewWatchlistAnalyzer(core, analyzer.WatchlistConfig{
		MaxConcurrent: cfg.Watchlist.MaxConcurrent,
		CacheTTL:      cfg.Watchlist.CacheTTL(),
	}, buildResultCache(cfg.Cache))

	a := &app{cfg: cfg}

	if opts.withStore && cfg.Cache.Redis.Addr != "" {
		store, err := redisstore.New(redisstore.Options{
			Addr:        cfg.Cache.Redis.Addr,
			AnalysisTTL: cfg.Cache.AnalysisTTL(),
			AlertsTTL:   cfg.Cache.AlertsTTL(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("analysis store unavailable, results stay in-process")
		} else {
			a.store = store
		}
	}

	if opts.withDB && cfg.Database.Enabled {
		manager, err := db.NewManager(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.dbm = manager
		a.watch = watchlist.NewService(manager.Repository().Watchlist)
	}

	scanOpts := scan.Options{
		Symbols:        cfg.Watchlist.Symbols,
		AlertThreshold: cfg.Watchlist.AlertThreshold,
	}
	if a.store != nil {
		scanOpts.Store = a.store
	}
	if a.watch != nil {
		scanOpts.Recorder = a.watch
	}
	a.scans = scan.NewService(wa, scanOpts)

	return a, nil
}

// Close releases the optional backends.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("closing analysis store failed")
		}
	}
	if a.dbm != nil {
		if err := a.dbm.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database failed")
		}
	}
}

// buildProviders assembles the rate-limited, circuit-broken snapshot provider
// set. The deterministic offline set serves every fetch until live collectors
// are plugged into the provider interfaces, so offline: false only logs the
// gap.
func buildProviders(cfg config.ProvidersConfig) providers.Set {
	if !cfg.Offline {
		log.Warn().Msg("live snapshot collectors are not configured, serving offline data")
	}
	guard := providers.NewGuard(cfg.RequestsPerMinute, cfg.Burst, cfg.BreakerConfig())
	return guard.WrapSet(providers.NewOfflineSet())
}

// buildCharts builds the chart-image URL source for alerts.
func buildCharts(cfg config.ChartConfig) *providers.ChartImages {
	if cfg.BaseURL != "" {
		return providers.NewChartImagesAt(cfg.BaseURL, cfg.APIKey)
	}
	return providers.NewChartImages(cfg.APIKey)
}

// buildResultCache picks Redis when an address is configured and the
// in-process cache otherwise.
func buildResultCache(cfg config.CacheConfig) cache.Cache {
	if cfg.Redis.Addr != "" {
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using Redis result cache")
		return cache.NewRedis(cfg.Redis.Addr)
	}
	return cache.NewMemory(cfg.Memory.MaxEntries)
}
