package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/persistence"
)

const tickerColumns = `id, symbol, company_name, sector, exchange, priority, active,
	reason_added, notes, entry_target, exit_target, stop_loss,
	last_price, change_pct_24h, volume_24h, market_cap, rsi_14, last_score,
	min_price, max_price, times_alerted, last_alert_at, added_at, last_checked_at`

// Sorts high before medium before low without relying on text ordering.
const priorityOrder = `CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END`

// watchlistRepo implements WatchlistRepo interface for PostgreSQL
type watchlistRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewWatchlistRepo creates a new PostgreSQL watchlist repository
func NewWatchlistRepo(db *sqlx.DB, timeout time.Duration) persistence.WatchlistRepo {
	return &watchlistRepo{
		db:      db,
		timeout: timeout,
	}
}

// AddTicker inserts a new active ticker row
func (r *watchlistRepo) AddTicker(ctx context.Context, record persistence.TickerRecord) (*persistence.TickerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	record.Symbol = persistence.NormalizeSymbol(record.Symbol)
	if record.Symbol == "" {
		return nil, fmt.Errorf("ticker symbol is required")
	}

	switch record.Priority {
	case "":
		record.Priority = domain.PriorityMedium
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
	default:
		return nil, fmt.Errorf("invalid priority %q", record.Priority)
	}

	query := `
		INSERT INTO watchlist_tickers (
			symbol, company_name, sector, exchange, priority, active,
			reason_added, notes, entry_target, exit_target, stop_loss
		) VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7, $8, $9, $10)
		RETURNING id, added_at`

	err := r.db.QueryRowxContext(ctx, query,
		record.Symbol, record.CompanyName, record.Sector, record.Exchange,
		record.Priority, record.ReasonAdded, record.Notes,
		record.EntryTarget, record.ExitTarget, record.StopLoss).
		Scan(&record.ID, &record.AddedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("ticker %s: %w", record.Symbol, persistence.ErrDuplicateTicker)
		}
		return nil, fmt.Errorf("failed to add ticker: %w", err)
	}

	record.Active = true
	return &record, nil
}

// RemoveTicker soft-deletes a ticker by clearing its active flag
func (r *watchlistRepo) RemoveTicker(ctx context.Context, symbol string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `UPDATE watchlist_tickers SET active = FALSE WHERE symbol = $1 AND active`

	res, err := r.db.ExecContext(ctx, query, persistence.NormalizeSymbol(symbol))
	if err != nil {
		return false, fmt.Errorf("failed to remove ticker: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove ticker: %w", err)
	}
	return affected > 0, nil
}

// GetTicker returns the active ticker for symbol
func (r *watchlistRepo) GetTicker(ctx context.Context, symbol string) (*persistence.TickerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + tickerColumns + ` FROM watchlist_tickers WHERE symbol = $1 AND active`

	var record persistence.TickerRecord
	err := r.db.GetContext(ctx, &record, query, persistence.NormalizeSymbol(symbol))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}
	return &record, nil
}

// ListTickers returns tickers matching filter, highest priority first
func (r *watchlistRepo) ListTickers(ctx context.Context, filter persistence.ListFilter) ([]persistence.TickerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + tickerColumns + ` FROM watchlist_tickers`

	var (
		conds []string
		args  []interface{}
	)
	if !filter.IncludeInactive {
		conds = append(conds, "active")
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY ` + priorityOrder + `, added_at DESC`

	var records []persistence.TickerRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	return records, nil
}

// UpdateMarketData caches market data on the ticker and appends a history
// point inside one transaction
func (r *watchlistRepo) UpdateMarketData(ctx context.Context, symbol string, update persistence.MarketUpdate) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if update.Price <= 0 {
		return false, fmt.Errorf("price must be positive, got %f", update.Price)
	}
	sym := persistence.NormalizeSymbol(symbol)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE watchlist_tickers SET
			last_price      = $2,
			change_pct_24h  = COALESCE($3, change_pct_24h),
			volume_24h      = COALESCE($4, volume_24h),
			market_cap      = COALESCE($5, market_cap),
			rsi_14          = COALESCE($6, rsi_14),
			last_score      = COALESCE($7, last_score),
			min_price       = LEAST(COALESCE(min_price, $2), $2),
			max_price       = GREATEST(COALESCE(max_price, $2), $2),
			times_alerted   = times_alerted + CASE WHEN $8 THEN 1 ELSE 0 END,
			last_alert_at   = CASE WHEN $8 THEN now() ELSE last_alert_at END,
			last_checked_at = now()
		WHERE symbol = $1 AND active
		RETURNING id, entry_target, exit_target, stop_loss`

	var (
		tickerID                int64
		entry, exitTarget, stop *float64
	)
	err = tx.QueryRowxContext(ctx, query,
		sym, update.Price, update.ChangePct24h, update.Volume24h,
		update.MarketCap, update.RSI14, update.Score, update.Alerted).
		Scan(&tickerID, &entry, &exitTarget, &stop)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update market data: %w", err)
	}

	toEntry, toExit, toStop := persistence.TargetDistances(update.Price, entry, exitTarget, stop)

	history := `
		INSERT INTO watchlist_history (
			ticker_id, symbol, price, volume, score,
			distance_to_entry, distance_to_exit, distance_to_stop
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := tx.ExecContext(ctx, history,
		tickerID, sym, update.Price, update.Volume24h, update.Score,
		toEntry, toExit, toStop); err != nil {
		return false, fmt.Errorf("failed to record history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit market data update: %w", err)
	}
	return true, nil
}

// History returns the most recent history points for symbol
func (r *watchlistRepo) History(ctx context.Context, symbol string, limit int) ([]persistence.HistoryPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, ticker_id, symbol, recorded_at, price, volume, score,
			distance_to_entry, distance_to_exit, distance_to_stop
		FROM watchlist_history
		WHERE symbol = $1
		ORDER BY recorded_at DESC
		LIMIT $2`

	var points []persistence.HistoryPoint
	if err := r.db.SelectContext(ctx, &points, query, persistence.NormalizeSymbol(symbol), limit); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return points, nil
}

// Summary returns aggregate watchlist statistics
func (r *watchlistRepo) Summary(ctx context.Context) (*persistence.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE priority = 'high') AS high_priority,
			COUNT(*) FILTER (WHERE last_alert_at > now() - INTERVAL '24 hours') AS alerted,
			COUNT(*) FILTER (WHERE last_price IS NOT NULL AND entry_target IS NOT NULL
				AND entry_target > 0
				AND ABS((last_price - entry_target) / entry_target) * 100 <= $1) AS near_entry
		FROM watchlist_tickers
		WHERE active`

	summary := persistence.Summary{GeneratedAt: time.Now().UTC()}
	err := r.db.QueryRowxContext(ctx, query, persistence.NearEntryThresholdPct).
		Scan(&summary.TotalTickers, &summary.HighPriority, &summary.Alerted24h, &summary.NearEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist summary: %w", err)
	}
	return &summary, nil
}

// TopMovers returns active tickers ordered by 24h percent change
func (r *watchlistRepo) TopMovers(ctx context.Context, limit int) ([]persistence.TickerRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + tickerColumns + `
		FROM watchlist_tickers
		WHERE active AND change_pct_24h IS NOT NULL
		ORDER BY change_pct_24h DESC
		LIMIT $1`

	var records []persistence.TickerRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get top movers: %w", err)
	}
	return records, nil
}
