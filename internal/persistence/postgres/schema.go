package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema holds the idempotent DDL for the watchlist tables. The partial
// unique index lets a symbol rejoin the watchlist after a soft delete.
const Schema = `
CREATE TABLE IF NOT EXISTS watchlist_tickers (
	id              BIGSERIAL PRIMARY KEY,
	symbol          TEXT        NOT NULL,
	company_name    TEXT        NOT NULL DEFAULT '',
	sector          TEXT        NOT NULL DEFAULT '',
	exchange        TEXT        NOT NULL DEFAULT '',
	priority        TEXT        NOT NULL DEFAULT 'medium',
	active          BOOLEAN     NOT NULL DEFAULT TRUE,
	reason_added    TEXT        NOT NULL DEFAULT '',
	notes           TEXT        NOT NULL DEFAULT '',
	entry_target    DOUBLE PRECISION,
	exit_target     DOUBLE PRECISION,
	stop_loss       DOUBLE PRECISION,
	last_price      DOUBLE PRECISION,
	change_pct_24h  DOUBLE PRECISION,
	volume_24h      DOUBLE PRECISION,
	market_cap      DOUBLE PRECISION,
	rsi_14          DOUBLE PRECISION,
	last_score      DOUBLE PRECISION,
	min_price       DOUBLE PRECISION,
	max_price       DOUBLE PRECISION,
	times_alerted   INTEGER     NOT NULL DEFAULT 0,
	last_alert_at   TIMESTAMPTZ,
	added_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_checked_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS watchlist_tickers_active_symbol
	ON watchlist_tickers (symbol) WHERE active;

CREATE TABLE IF NOT EXISTS watchlist_history (
	id                BIGSERIAL PRIMARY KEY,
	ticker_id         BIGINT      NOT NULL REFERENCES watchlist_tickers (id),
	symbol            TEXT        NOT NULL,
	recorded_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	price             DOUBLE PRECISION NOT NULL,
	volume            DOUBLE PRECISION,
	score             DOUBLE PRECISION,
	distance_to_entry DOUBLE PRECISION,
	distance_to_exit  DOUBLE PRECISION,
	distance_to_stop  DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS watchlist_history_symbol_time
	ON watchlist_history (symbol, recorded_at DESC);
`

// EnsureSchema applies the watchlist schema, creating tables and indexes
// that do not exist yet
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply watchlist schema: %w", err)
	}
	return nil
}
