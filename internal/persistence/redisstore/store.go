// Package redisstore persists finished analyses and their alerts in Redis
// so the API surface can serve results across restarts and processes.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
)

const (
	analysisPrefix = "stockrun:analysis:"
	alertsPrefix   = "stockrun:alerts:"
)

// Default TTLs. Analyses live one scan interval; alert summaries refresh
// faster.
const (
	DefaultAnalysisTTL = 15 * time.Minute
	DefaultAlertsTTL   = 5 * time.Minute
)

// Options configures the store connection and TTLs. Zero TTLs keep the
// defaults.
type Options struct {
	Addr        string
	Password    string
	DB          int
	AnalysisTTL time.Duration
	AlertsTTL   time.Duration
}

// Store is a typed Redis store for analysis results.
type Store struct {
	client      *redis.Client
	analysisTTL time.Duration
	alertsTTL   time.Duration
}

// New connects to Redis and verifies the connection before returning.
func New(opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("analysis store connected")
	return newWithClient(client, opts), nil
}

// newWithClient wires a store around an existing client. Tests inject the
// redismock client here.
func newWithClient(client *redis.Client, opts Options) *Store {
	if opts.AnalysisTTL <= 0 {
		opts.AnalysisTTL = DefaultAnalysisTTL
	}
	if opts.AlertsTTL <= 0 {
		opts.AlertsTTL = DefaultAlertsTTL
	}
	return &Store{
		client:      client,
		analysisTTL: opts.AnalysisTTL,
		alertsTTL:   opts.AlertsTTL,
	}
}

// AnalysisKey is the storage key for one symbol's analysis.
func AnalysisKey(symbol string) string {
	return analysisPrefix + strings.ToUpper(strings.TrimSpace(symbol))
}

// AlertsKey is the storage key for one symbol's alerts.
func AlertsKey(symbol string) string {
	return alertsPrefix + strings.ToUpper(strings.TrimSpace(symbol))
}

// CacheAnalysis stores one finished analysis under its symbol.
func (s *Store) CacheAnalysis(ctx context.Context, analysis *domain.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("nil analysis")
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := s.client.Set(ctx, AnalysisKey(analysis.Symbol), data, s.analysisTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// GetCachedAnalysis loads one symbol's analysis. found is false on a miss.
func (s *Store) GetCachedAnalysis(ctx context.Context, symbol string) (*domain.Analysis, bool, error) {
	val, err := s.client.Get(ctx, AnalysisKey(symbol)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(val), &analysis); err != nil {
		return nil, false, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &analysis, true, nil
}

// CacheAlerts stores a symbol's current alerts.
func (s *Store) CacheAlerts(ctx context.Context, symbol string, alerts []domain.Alert) error {
	data, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}
	if err := s.client.Set(ctx, AlertsKey(symbol), data, s.alertsTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// GetCachedAlerts loads a symbol's alerts. found is false on a miss.
func (s *Store) GetCachedAlerts(ctx context.Context, symbol string) ([]domain.Alert, bool, error) {
	val, err := s.client.Get(ctx, AlertsKey(symbol)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var alerts []domain.Alert
	if err := json.Unmarshal([]byte(val), &alerts); err != nil {
		return nil, false, fmt.Errorf("unmarshal alerts: %w", err)
	}
	return alerts, true, nil
}

// Delete drops a symbol's stored analysis and alerts.
func (s *Store) Delete(ctx context.Context, symbol string) error {
	if err := s.client.Del(ctx, AnalysisKey(symbol), AlertsKey(symbol)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Symbols lists every symbol with a stored analysis, sorted.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	keys, err := s.client.Keys(ctx, analysisPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %w", err)
	}

	symbols := make([]string, 0, len(keys))
	for _, key := range keys {
		symbols = append(symbols, strings.TrimPrefix(key, analysisPrefix))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
