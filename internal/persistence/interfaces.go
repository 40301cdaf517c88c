package persistence

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sawpanic/stockrun/internal/domain"
)

// ErrDuplicateTicker is returned by AddTicker when an active ticker with the
// same symbol already exists.
var ErrDuplicateTicker = errors.New("ticker is already on the watchlist")

// TickerRecord is a watchlist row with cached market data and price targets
type TickerRecord struct {
	ID          int64           `json:"id" db:"id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	CompanyName string          `json:"company_name,omitempty" db:"company_name"`
	Sector      string          `json:"sector,omitempty" db:"sector"`
	Exchange    string          `json:"exchange,omitempty" db:"exchange"`
	Priority    domain.Priority `json:"priority" db:"priority"`
	Active      bool            `json:"active" db:"active"`
	ReasonAdded string          `json:"reason_added,omitempty" db:"reason_added"`
	Notes       string          `json:"notes,omitempty" db:"notes"`

	// Price targets set when the ticker was added
	EntryTarget *float64 `json:"entry_target,omitempty" db:"entry_target"`
	ExitTarget  *float64 `json:"exit_target,omitempty" db:"exit_target"`
	StopLoss    *float64 `json:"stop_loss,omitempty" db:"stop_loss"`

	// Market data cached from the most recent analysis
	LastPrice    *float64 `json:"last_price,omitempty" db:"last_price"`
	ChangePct24h *float64 `json:"change_pct_24h,omitempty" db:"change_pct_24h"`
	Volume24h    *float64 `json:"volume_24h,omitempty" db:"volume_24h"`
	MarketCap    *float64 `json:"market_cap,omitempty" db:"market_cap"`
	RSI14        *float64 `json:"rsi_14,omitempty" db:"rsi_14"`
	LastScore    *float64 `json:"last_score,omitempty" db:"last_score"`

	// Range observed since the ticker was added
	MinPrice *float64 `json:"min_price,omitempty" db:"min_price"`
	MaxPrice *float64 `json:"max_price,omitempty" db:"max_price"`

	TimesAlerted  int        `json:"times_alerted" db:"times_alerted"`
	LastAlertAt   *time.Time `json:"last_alert_at,omitempty" db:"last_alert_at"`
	AddedAt       time.Time  `json:"added_at" db:"added_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
}

// HistoryPoint is one recorded observation of a watchlist ticker
type HistoryPoint struct {
	ID         int64     `json:"id" db:"id"`
	TickerID   int64     `json:"ticker_id" db:"ticker_id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Price      float64   `json:"price" db:"price"`
	Volume     *float64  `json:"volume,omitempty" db:"volume"`
	Score      *float64  `json:"score,omitempty" db:"score"`

	// Percent distance from the ticker's targets at record time
	DistanceToEntry *float64 `json:"distance_to_entry,omitempty" db:"distance_to_entry"`
	DistanceToExit  *float64 `json:"distance_to_exit,omitempty" db:"distance_to_exit"`
	DistanceToStop  *float64 `json:"distance_to_stop,omitempty" db:"distance_to_stop"`
}

// MarketUpdate carries fresh market data for one ticker. Price is required;
// nil optional fields leave the cached column untouched.
type MarketUpdate struct {
	Price        float64
	ChangePct24h *float64
	Volume24h    *float64
	MarketCap    *float64
	RSI14        *float64
	Score        *float64

	// Alerted marks that this update coincided with a triggered alert
	Alerted bool
}

// ListFilter narrows ListTickers results. The zero value lists all active
// tickers.
type ListFilter struct {
	Priority        domain.Priority
	IncludeInactive bool
}

// Summary aggregates watchlist state for dashboards
type Summary struct {
	TotalTickers int       `json:"total_tickers"`
	HighPriority int       `json:"high_priority_tickers"`
	Alerted24h   int       `json:"alerted_24h"`
	NearEntry    int       `json:"near_entry_targets"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// NearEntryThresholdPct is the band, in percent, within which a ticker
// counts as near its entry target.
const NearEntryThresholdPct = 5.0

// WatchlistRepo provides watchlist ticker persistence
type WatchlistRepo interface {
	// AddTicker inserts a new active ticker; duplicate active symbols fail
	AddTicker(ctx context.Context, record TickerRecord) (*TickerRecord, error)

	// RemoveTicker soft-deletes a ticker by clearing its active flag.
	// Returns false when no active ticker matched.
	RemoveTicker(ctx context.Context, symbol string) (bool, error)

	// GetTicker returns the active ticker for symbol, or nil when absent
	GetTicker(ctx context.Context, symbol string) (*TickerRecord, error)

	// ListTickers returns tickers matching filter, highest priority first
	ListTickers(ctx context.Context, filter ListFilter) ([]TickerRecord, error)

	// UpdateMarketData caches fresh market data on the ticker, extends its
	// min/max range, and appends a history point with target distances.
	// Returns false when no active ticker matched.
	UpdateMarketData(ctx context.Context, symbol string, update MarketUpdate) (bool, error)

	// History returns the most recent history points for symbol
	History(ctx context.Context, symbol string, limit int) ([]HistoryPoint, error)

	// Summary returns aggregate watchlist statistics
	Summary(ctx context.Context) (*Summary, error)

	// TopMovers returns active tickers ordered by 24h percent change
	TopMovers(ctx context.Context, limit int) ([]TickerRecord, error)
}

// Repository aggregates all persistence interfaces
type Repository struct {
	Watchlist WatchlistRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck

	// Ping tests basic connectivity to the database
	Ping(ctx context.Context) error

	// Stats returns connection pool and query statistics
	Stats(ctx context.Context) map[string]interface{}
}

// NormalizeSymbol uppercases and trims a ticker symbol for storage
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// TargetDistances computes the percent distance from price to each target.
// Entry and stop distances are measured relative to the target, exit
// distance is the remaining move relative to the current price. Nil targets
// yield nil distances.
func TargetDistances(price float64, entry, exit, stop *float64) (toEntry, toExit, toStop *float64) {
	if price <= 0 {
		return nil, nil, nil
	}
	if entry != nil && *entry > 0 {
		d := (price - *entry) / *entry * 100
		toEntry = &d
	}
	if exit != nil {
		d := (*exit - price) / price * 100
		toExit = &d
	}
	if stop != nil && *stop > 0 {
		d := (price - *stop) / *stop * 100
		toStop = &d
	}
	return toEntry, toExit, toStop
}

// NearEntry reports whether price sits within NearEntryThresholdPct of the
// entry target.
func NearEntry(price float64, entry *float64) bool {
	if entry == nil || *entry <= 0 || price <= 0 {
		return false
	}
	return math.Abs((price-*entry)/(*entry))*100 <= NearEntryThresholdPct
}
