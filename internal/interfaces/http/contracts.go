package http

import (
	"time"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/persistence"
	"github.com/sawpanic/stockrun/internal/scan"
)

// ErrorResponse is the uniform error payload for all endpoints
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check endpoint payload
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	System    SystemInfo             `json:"system"`
	Checks    map[string]CheckResult `json:"checks"`
}

// SystemInfo provides runtime system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAllocMB    uint64 `json:"memory_alloc_mb"`
	MemSysMB      uint64 `json:"memory_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// CheckResult is the outcome of one named health check
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// StatusResponse aggregates runtime state across subsystems
type StatusResponse struct {
	Timestamp        time.Time       `json:"timestamp"`
	Version          string          `json:"version"`
	Uptime           string          `json:"uptime"`
	Scan             scan.Status     `json:"scan"`
	WebSocketClients int             `json:"websocket_clients"`
	Database         *DatabaseStatus `json:"database,omitempty"`
}

// DatabaseStatus reports persistence health and pool statistics
type DatabaseStatus struct {
	Enabled bool                     `json:"enabled"`
	Health  *persistence.HealthCheck `json:"health,omitempty"`
	Stats   map[string]interface{}   `json:"stats,omitempty"`
}

// AnalyzeRequest asks for a fresh analysis of one symbol
type AnalyzeRequest struct {
	Symbol string `json:"symbol"`
}

// ScanRequest optionally narrows a sweep to specific symbols. An empty list
// sweeps the configured watchlist.
type ScanRequest struct {
	Symbols []string `json:"symbols,omitempty"`
}

// ScanStartedResponse acknowledges a background sweep launch
type ScanStartedResponse struct {
	Status  string `json:"status"`
	Symbols int    `json:"symbols"`
}

// TopResponse lists the best-scoring analyses from the latest results
type TopResponse struct {
	Timestamp time.Time          `json:"timestamp"`
	MinScore  float64            `json:"min_score"`
	Limit     int                `json:"limit"`
	Count     int                `json:"count"`
	Results   []*domain.Analysis `json:"results"`
}

// AlertsResponse buckets the latest alerts by priority
type AlertsResponse struct {
	Timestamp time.Time                          `json:"timestamp"`
	Counts    map[domain.Priority]int            `json:"counts"`
	Alerts    map[domain.Priority][]domain.Alert `json:"alerts"`
}

// WatchlistResponse lists watchlist tickers
type WatchlistResponse struct {
	Timestamp time.Time                  `json:"timestamp"`
	Count     int                        `json:"count"`
	Tickers   []persistence.TickerRecord `json:"tickers"`
}

// HistoryResponse lists recorded observations for one ticker
type HistoryResponse struct {
	Symbol  string                     `json:"symbol"`
	Count   int                        `json:"count"`
	History []persistence.HistoryPoint `json:"history"`
}

// RemoveResponse confirms a watchlist removal
type RemoveResponse struct {
	Symbol  string `json:"symbol"`
	Removed bool   `json:"removed"`
}
