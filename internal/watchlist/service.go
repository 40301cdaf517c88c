// Package watchlist layers ticker management and analysis-driven market
// data updates over the persistence repository.
package watchlist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/persistence"
)

// trailingWindowPoints bounds the history read used for the trailing 24h
// change. Covers a full day of 15 minute scans with slack.
const trailingWindowPoints = 200

// AddRequest describes a ticker to put on the watchlist
type AddRequest struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name,omitempty"`
	Sector      string          `json:"sector,omitempty"`
	Exchange    string          `json:"exchange,omitempty"`
	Priority    domain.Priority `json:"priority,omitempty"`
	ReasonAdded string          `json:"reason_added,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	EntryTarget *float64        `json:"entry_target,omitempty"`
	ExitTarget  *float64        `json:"exit_target,omitempty"`
	StopLoss    *float64        `json:"stop_loss,omitempty"`
}

// Service manages watchlist tickers and keeps their cached market data in
// sync with finished analyses
type Service struct {
	repo persistence.WatchlistRepo
}

// NewService creates a watchlist service over repo
func NewService(repo persistence.WatchlistRepo) *Service {
	return &Service{repo: repo}
}

// Add puts a new ticker on the watchlist
func (s *Service) Add(ctx context.Context, req AddRequest) (*persistence.TickerRecord, error) {
	if persistence.NormalizeSymbol(req.Symbol) == "" {
		return nil, fmt.Errorf("ticker symbol is required")
	}

	record := persistence.TickerRecord{
		Symbol:      req.Symbol,
		CompanyName: req.CompanyName,
		Sector:      req.Sector,
		Exchange:    req.Exchange,
		Priority:    req.Priority,
		ReasonAdded: req.ReasonAdded,
		Notes:       req.Notes,
		EntryTarget: req.EntryTarget,
		ExitTarget:  req.ExitTarget,
		StopLoss:    req.StopLoss,
	}

	added, err := s.repo.AddTicker(ctx, record)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("symbol", added.Symbol).
		Str("priority", string(added.Priority)).
		Msg("Ticker added to watchlist")
	return added, nil
}

// Remove soft-deletes a ticker. Returns false when the symbol was not on
// the active watchlist.
func (s *Service) Remove(ctx context.Context, symbol string) (bool, error) {
	removed, err := s.repo.RemoveTicker(ctx, symbol)
	if err != nil {
		return false, err
	}
	if removed {
		log.Info().Str("symbol", persistence.NormalizeSymbol(symbol)).Msg("Ticker removed from watchlist")
	}
	return removed, nil
}

// Get returns the active ticker for symbol, or nil when absent
func (s *Service) Get(ctx context.Context, symbol string) (*persistence.TickerRecord, error) {
	return s.repo.GetTicker(ctx, symbol)
}

// List returns tickers matching filter, highest priority first
func (s *Service) List(ctx context.Context, filter persistence.ListFilter) ([]persistence.TickerRecord, error) {
	return s.repo.ListTickers(ctx, filter)
}

// History returns the most recent recorded observations for symbol
func (s *Service) History(ctx context.Context, symbol string, limit int) ([]persistence.HistoryPoint, error) {
	return s.repo.History(ctx, symbol, limit)
}

// Summary returns aggregate watchlist statistics
func (s *Service) Summary(ctx context.Context) (*persistence.Summary, error) {
	return s.repo.Summary(ctx)
}

// TopMovers returns active tickers ordered by trailing percent change
func (s *Service) TopMovers(ctx context.Context, limit int) ([]persistence.TickerRecord, error) {
	return s.repo.TopMovers(ctx, limit)
}

// RecordAnalysis folds a finished analysis into the ticker's cached market
// data and history. Symbols that are not on the watchlist are ignored, as
// are analyses without a usable price.
func (s *Service) RecordAnalysis(ctx context.Context, analysis *domain.Analysis, alerted bool) (bool, error) {
	if analysis == nil || analysis.Snapshots == nil || analysis.Snapshots.Technical == nil {
		return false, nil
	}
	tech := analysis.Snapshots.Technical
	if tech.Price <= 0 {
		return false, nil
	}

	existing, err := s.repo.GetTicker(ctx, analysis.Symbol)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	update := persistence.MarketUpdate{
		Price:        tech.Price,
		ChangePct24h: s.trailingChange(ctx, existing.Symbol, tech.Price),
		Alerted:      alerted,
	}
	if tech.Volume > 0 {
		v := tech.Volume
		update.Volume24h = &v
	}
	if tech.RSI > 0 {
		r := tech.RSI
		update.RSI14 = &r
	}
	if fund := analysis.Snapshots.Fundamental; fund != nil && fund.MarketCap > 0 {
		mc := fund.MarketCap
		update.MarketCap = &mc
	}
	if analysis.CompositeScore != nil {
		score := analysis.CompositeScore.TotalScore
		update.Score = &score
	}

	updated, err := s.repo.UpdateMarketData(ctx, analysis.Symbol, update)
	if err != nil {
		return false, fmt.Errorf("failed to update %s market data: %w", analysis.Symbol, err)
	}
	return updated, nil
}

// Seed adds any of symbols not already on the watchlist, used to bootstrap
// a fresh database from the configured scan list
func (s *Service) Seed(ctx context.Context, symbols []string) (int, error) {
	added := 0
	for _, symbol := range symbols {
		sym := persistence.NormalizeSymbol(symbol)
		if sym == "" {
			continue
		}

		existing, err := s.repo.GetTicker(ctx, sym)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}

		if _, err := s.repo.AddTicker(ctx, persistence.TickerRecord{
			Symbol:      sym,
			Priority:    domain.PriorityMedium,
			ReasonAdded: "default scan watchlist",
		}); err != nil {
			return added, fmt.Errorf("failed to seed %s: %w", sym, err)
		}
		added++
	}

	if added > 0 {
		log.Info().Int("added", added).Msg("Watchlist seeded")
	}
	return added, nil
}

// trailingChange computes the percent change from the oldest observation
// recorded within the last 24 hours. Returns nil when no usable baseline
// exists yet.
func (s *Service) trailingChange(ctx context.Context, symbol string, price float64) *float64 {
	points, err := s.repo.History(ctx, symbol, trailingWindowPoints)
	if err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("Trailing change unavailable")
		return nil
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	var base *persistence.HistoryPoint
	for i := range points {
		if points[i].RecordedAt.Before(cutoff) {
			break
		}
		base = &points[i]
	}
	if base == nil || base.Price <= 0 {
		return nil
	}

	change := (price - base.Price) / base.Price * 100
	return &change
}
