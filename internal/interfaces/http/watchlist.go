package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/persistence"
	"github.com/sawpanic/stockrun/internal/watchlist"
)

// requireWatchlist guards endpoints that need the persistence layer
func (h *Handlers) requireWatchlist(w http.ResponseWriter, r *http.Request) bool {
	if h.watch == nil {
		writeError(w, r, http.StatusServiceUnavailable, "watchlist_disabled", "watchlist persistence is not configured")
		return false
	}
	return true
}

func validPriority(priority domain.Priority) bool {
	switch priority {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		return true
	}
	return false
}

// WatchlistList returns tickers matching the optional priority and
// include_inactive query parameters
func (h *Handlers) WatchlistList(w http.ResponseWriter, r *http.Request) {
	if !h.requireWatchlist(w, r) {
		return
	}

	var filter persistence.ListFilter
	if v := r.URL.Query().Get("priority"); v != "" {
		priority := domain.Priority(v)
		if !validPriority(priority) {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "priority must be high, medium, or low")
			return
		}
		filter.Priority = priority
	}
	if v := r.URL.Query().Get("include_inactive"); v != "" {
		filter.IncludeInactive = v == "true" || v == "1"
	}

	tickers, err := h.watch.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Watchlist list failed")
		writeError(w, r, http.StatusInternalServerError, "database_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, WatchlistResponse{
		Timestamp: time.Now().UTC(),
		Count:     len(tickers),
		Tickers:   tickers,
	})
}

// WatchlistAdd puts a new ticker on the watchlist
func (h *Handlers) WatchlistAdd(w http.ResponseWriter, r *http.Request) {
	if !h.requireWatchlist(w, r) {
		return
	}

	var req watchlist.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if persistence.NormalizeSymbol(req.Symbol) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "symbol is required")
		return
	}
	if req.Priority != "" && !validPriority(req.Priority) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "priority must be high, medium, or low")
		return
	}

	record, err := h.watch.Add(r.Context(), req)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicateTicker) {
			writeError(w, r, http.StatusConflict, "duplicate_ticker", err.Error())
			return
		}
		log.Error().Err(err).Str("symbol", req.Symbol).Msg("Watchlist add failed")
		writeError(w, r, http.StatusInternalServerError, "database_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// WatchlistGet returns one active ticker
func (h *Handlers) WatchlistGet(w http.ResponseWriter, r *http.Request) {
	if !h.requireWatchlist(w, r) {
		return
	}

	symbol := mux.Vars(r)["symbol"]
	record, err := h.watch.Get(r.Context(), symbol)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("Watchlist get failed")
		writeError(w, r, http.StatusInternalServerError, "database_error", err.Error())
		return
	}
	if record == nil {
		writeError(w, r, http.StatusNotFound, "ticker_not_found",
			fmt.Sprintf("%s is not on the watchlist", persistence.NormalizeSymbol(symbol)))
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// WatchlistRemove takes a ticker off the watchlist
func (h *Handlers) WatchlistRemove(w http.ResponseWriter, r *http.Request) {
	if !h.requireWatchlist(w, r) {
		return
	}

	symbol := mux.Vars(r)["symbol"]
	removed, err := h.watch.Remove(r.Context(), symbol)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("Watchlist remove failed")
		writeError(w, r, http.StatusInternalServerError, "database_error", err.Error())
		return
	}
	if !removed {
		writeError(w, r, http.StatusNotFound, "ticker_not_found",
			fmt.Sprintf("%s is not on the watchlist", persistence.NormalizeSymbol(symbol)))
		return
	}

	writeJSON(w, http.StatusOK, RemoveResponse{
		Symbol:  persistence.NormalizeSymbol(symbol),
		Removed: true,
	})
}

// WatchlistSummary returns aggregate watchlist statistics
func (h *Handlers) WatchlistSummary(w http.ResponseWriter, r *http.Request) {
	if !h.requireWatchlist(w, r) {
		return
	}

	summary, err := h.watch.Summary(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Watchlist summary failed")
		writeError(w, r, http.StatusInternalServerError, "database_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// WatchlistMovers returns active tickers ordered by 24h percent change
func (h *Handlers) WatchlistMovers(w http.ResponseWriter, r *http.Request) {
	if !h.requireWatchlist(w, r) {
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	movers, err := h.watch.TopMovers(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Watchlist movers failed")
		writeError(w, r, http.StatusInternalServerError, "database_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, WatchlistResponse{
		Timestamp: time.Now().UTC(),
		Count:     len(movers),
		Tickers:   movers,
	})
}

// WatchlistHistory returns recorded observations for one ticker, newest
// first
func (h *Handlers) WatchlistHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireWatchlist(w, r) {
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	symbol := mux.Vars(r)["symbol"]
	history, err := h.watch.History(r.Context(), symbol, limit)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("Watchlist history failed")
		writeError(w, r, http.StatusInternalServerError, "database_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Symbol:  persistence.NormalizeSymbol(symbol),
		Count:   len(history),
		History: history,
	})
}
