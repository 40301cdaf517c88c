// Package config loads the YAML files under config/ and applies environment
// overrides. Missing files fall back to defaults so a bare checkout runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/stockrun/internal/alerts"
	"github.com/sawpanic/stockrun/internal/providers"
	"github.com/sawpanic/stockrun/internal/scoring"
)

// DefaultDir is where Load looks when no directory is given.
const DefaultDir = "config"

const (
	providersFile = "providers.yaml"
	cacheFile     = "cache.yaml"
	databaseFile  = "database.yaml"
	watchlistFile = "watchlist.yaml"
	weightsFile   = "weights.yaml"
)

// AppConfig is the full application configuration.
type AppConfig struct {
	Providers ProvidersConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Watchlist WatchlistConfig
	Weights   scoring.Weights
}

// Load reads every configuration file under dir. Files that do not exist
// contribute their defaults; files that exist but fail to parse or validate
// are errors.
func Load(dir string) (*AppConfig, error) {
	if dir == "" {
		dir = DefaultDir
	}

	providersCfg, err := LoadProviders(filepath.Join(dir, providersFile))
	if err != nil {
		return nil, err
	}
	cacheCfg, err := LoadCache(filepath.Join(dir, cacheFile))
	if err != nil {
		return nil, err
	}
	databaseCfg, err := LoadDatabase(filepath.Join(dir, databaseFile))
	if err != nil {
		return nil, err
	}
	watchlistCfg, err := LoadWatchlist(filepath.Join(dir, watchlistFile))
	if err != nil {
		return nil, err
	}
	weights, err := loadWeights(filepath.Join(dir, weightsFile))
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		Providers: providersCfg,
		Cache:     cacheCfg,
		Database:  databaseCfg,
		Watchlist: watchlistCfg,
		Weights:   weights,
	}, nil
}

// readYAML unmarshals path over out, leaving out untouched when the file
// does not exist.
func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ProvidersConfig tunes the outbound snapshot providers.
type ProvidersConfig struct {
	RequestsPerMinute   int             `yaml:"requests_per_minute"`
	Burst               int             `yaml:"burst"`
	FetchTimeoutSeconds int             `yaml:"fetch_timeout_seconds"`
	Offline             bool            `yaml:"offline"`
	Chart               ChartConfig     `yaml:"chart"`
	Breaker             BreakerSettings `yaml:"breaker"`
}

// ChartConfig configures the chart-image URL builder.
type ChartConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// BreakerSettings are the per-provider circuit breaker knobs. Unset fields
// keep the provider package defaults.
type BreakerSettings struct {
	MaxRequests         int     `yaml:"max_requests"`
	IntervalSeconds     int     `yaml:"interval_seconds"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
	ErrorRateThreshold  float64 `yaml:"error_rate_threshold"`
	ConsecutiveFailures int     `yaml:"consecutive_failures"`
}

// LoadProviders loads the provider configuration with environment overrides.
// CHART_IMG_API_KEY overrides chart.api_key.
func LoadProviders(path string) (ProvidersConfig, error) {
	cfg := ProvidersConfig{
		RequestsPerMinute:   60,
		Burst:               10,
		FetchTimeoutSeconds: 10,
	}
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if key := os.Getenv("CHART_IMG_API_KEY"); key != "" {
		cfg.Chart.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("providers config: %w", err)
	}
	return cfg, nil
}

// Validate checks the provider configuration.
func (p ProvidersConfig) Validate() error {
	if p.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	if p.Burst <= 0 {
		return fmt.Errorf("burst must be positive")
	}
	if p.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch_timeout_seconds must be positive")
	}
	if p.Breaker.ErrorRateThreshold < 0 || p.Breaker.ErrorRateThreshold > 100 {
		return fmt.Errorf("breaker error_rate_threshold must be within [0, 100]")
	}
	return nil
}

// FetchTimeout is the per-provider fetch timeout.
func (p ProvidersConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutSeconds) * time.Second
}

// BreakerConfig converts the yaml settings, keeping the provider package
// defaults for unset fields.
func (p ProvidersConfig) BreakerConfig() providers.BreakerConfig {
	cfg := providers.DefaultBreakerConfig()
	if p.Breaker.MaxRequests > 0 {
		cfg.MaxRequests = uint32(p.Breaker.MaxRequests)
	}
	if p.Breaker.IntervalSeconds > 0 {
		cfg.Interval = time.Duration(p.Breaker.IntervalSeconds) * time.Second
	}
	if p.Breaker.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(p.Breaker.TimeoutSeconds) * time.Second
	}
	if p.Breaker.ErrorRateThreshold > 0 {
		cfg.ErrorRateThreshold = p.Breaker.ErrorRateThreshold
	}
	if p.Breaker.ConsecutiveFailures > 0 {
		cfg.ConsecutiveFailures = uint32(p.Breaker.ConsecutiveFailures)
	}
	return cfg
}

// CacheConfig configures the result cache backends.
type CacheConfig struct {
	Redis  RedisConfig  `yaml:"redis"`
	Memory MemoryConfig `yaml:"memory"`
}

// RedisConfig holds the Redis address and the per-kind TTLs. An empty
// address keeps everything in process memory.
type RedisConfig struct {
	Addr               string `yaml:"addr"`
	DefaultTTLSeconds  int    `yaml:"default_ttl_seconds"`
	AnalysisTTLSeconds int    `yaml:"analysis_ttl_seconds"`
	AlertsTTLSeconds   int    `yaml:"alerts_ttl_seconds"`
}

// MemoryConfig tunes the in-process cache. Zero max_entries keeps the cache
// package default.
type MemoryConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// LoadCache loads the cache configuration. REDIS_ADDR overrides redis.addr.
func LoadCache(path string) (CacheConfig, error) {
	cfg := CacheConfig{
		Redis: RedisConfig{
			DefaultTTLSeconds:  300,
			AnalysisTTLSeconds: 900,
			AlertsTTLSeconds:   300,
		},
	}
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("cache config: %w", err)
	}
	return cfg, nil
}

// Validate checks the cache configuration.
func (c CacheConfig) Validate() error {
	if c.Redis.DefaultTTLSeconds < 0 || c.Redis.AnalysisTTLSeconds < 0 || c.Redis.AlertsTTLSeconds < 0 {
		return fmt.Errorf("cache TTLs cannot be negative")
	}
	if c.Memory.MaxEntries < 0 {
		return fmt.Errorf("memory max_entries cannot be negative")
	}
	return nil
}

// DefaultTTL is the cache TTL for entries without a dedicated one.
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.Redis.DefaultTTLSeconds) * time.Second
}

// AnalysisTTL is how long cached analysis results stay fresh.
func (c CacheConfig) AnalysisTTL() time.Duration {
	return time.Duration(c.Redis.AnalysisTTLSeconds) * time.Second
}

// AlertsTTL is how long cached alert summaries stay fresh.
func (c CacheConfig) AlertsTTL() time.Duration {
	return time.Duration(c.Redis.AlertsTTLSeconds) * time.Second
}

// DatabaseConfig configures the optional Postgres watchlist store.
type DatabaseConfig struct {
	Enabled                bool   `yaml:"enabled"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	QueryTimeoutSeconds    int    `yaml:"query_timeout_seconds"`
}

// LoadDatabase loads the database configuration with environment overrides.
// PG_DSN overrides dsn, PG_ENABLED overrides enabled.
func LoadDatabase(path string) (DatabaseConfig, error) {
	cfg := DatabaseConfig{
		MaxOpenConns:           10,
		MaxIdleConns:           5,
		ConnMaxLifetimeMinutes: 30,
		QueryTimeoutSeconds:    30,
	}
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		cfg.DSN = dsn
	}
	if enabled := os.Getenv("PG_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			cfg.Enabled = val
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("database config: %w", err)
	}
	return cfg, nil
}

// Validate checks the database configuration.
func (d DatabaseConfig) Validate() error {
	if d.Enabled && d.DSN == "" {
		return fmt.Errorf("database DSN is required when database is enabled")
	}
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("max_open_conns must be positive")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("max_idle_conns cannot be negative")
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("max_idle_conns cannot exceed max_open_conns")
	}
	if d.QueryTimeoutSeconds <= 0 {
		return fmt.Errorf("query_timeout_seconds must be positive")
	}
	return nil
}

// ConnMaxLifetime is how long one pooled connection may live.
func (d DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeMinutes) * time.Minute
}

// QueryTimeout bounds individual repository queries.
func (d DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutSeconds) * time.Second
}

// WatchlistConfig holds the scan watchlist and the scoring thresholds for
// the reporting surfaces.
type WatchlistConfig struct {
	Symbols         []string `yaml:"symbols"`
	MaxConcurrent   int      `yaml:"max_concurrent"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	MinScore        float64  `yaml:"min_score"`
	TopLimit        int      `yaml:"top_limit"`
	AlertThreshold  float64  `yaml:"alert_threshold"`
}

// DefaultWatchlist is the out-of-the-box retail watchlist.
func DefaultWatchlist() []string {
	return []string{
		"GME", "AMC", "BBBY", "TSLA", "NVDA",
		"PLTR", "COIN", "HOOD", "RBLX", "SOFI",
		"WISH", "CLOV", "BB", "NOK", "SNDL",
		"PROG", "ASTS", "RDDT", "TRUMP", "DJT",
	}
}

// LoadWatchlist loads the watchlist configuration.
func LoadWatchlist(path string) (WatchlistConfig, error) {
	cfg := WatchlistConfig{
		MaxConcurrent:   3,
		CacheTTLSeconds: 300,
		MinScore:        70.0,
		TopLimit:        10,
		AlertThreshold:  alerts.DefaultScoreThreshold,
	}
	if err := readYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = DefaultWatchlist()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("watchlist config: %w", err)
	}
	return cfg, nil
}

// Validate checks the watchlist configuration.
func (w WatchlistConfig) Validate() error {
	if w.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive")
	}
	if w.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds cannot be negative")
	}
	if w.MinScore < 0 || w.MinScore > 100 {
		return fmt.Errorf("min_score must be within [0, 100]")
	}
	if w.TopLimit < 0 {
		return fmt.Errorf("top_limit cannot be negative")
	}
	if w.AlertThreshold < 0 || w.AlertThreshold > 100 {
		return fmt.Errorf("alert_threshold must be within [0, 100]")
	}
	return nil
}

// CacheTTL is how long batch scan results are reused.
func (w WatchlistConfig) CacheTTL() time.Duration {
	return time.Duration(w.CacheTTLSeconds) * time.Second
}

// loadWeights loads the scoring weights file, which carries its own loader
// and validation. A missing file keeps the default weights.
func loadWeights(path string) (scoring.Weights, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return scoring.DefaultWeights(), nil
	}
	weights, err := scoring.LoadWeights(path)
	if err != nil {
		return weights, fmt.Errorf("weights config: %w", err)
	}
	return weights, nil
}
