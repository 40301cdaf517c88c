package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/infrastructure/db"
	"github.com/sawpanic/stockrun/internal/scan"
	"github.com/sawpanic/stockrun/internal/watchlist"
)

// Handlers carries the services behind the API endpoints
type Handlers struct {
	scans     *scan.Service
	watch     *watchlist.Service
	db        *db.Manager
	hub       *AlertHub
	version   string
	minScore  float64
	topLimit  int
	startTime time.Time
}

// NewHandlers creates the endpoint handlers over deps
func NewHandlers(deps Dependencies, hub *AlertHub) *Handlers {
	return &Handlers{
		scans:     deps.Scans,
		watch:     deps.Watchlist,
		db:        deps.DB,
		hub:       hub,
		version:   deps.Version,
		minScore:  deps.MinScore,
		topLimit:  deps.TopLimit,
		startTime: time.Now(),
	}
}

// Health reports liveness plus system and dependency checks
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	checks := make(map[string]CheckResult)

	scanStatus := h.scans.CurrentStatus()
	if scanStatus.LastScanAt.IsZero() {
		checks["scan"] = CheckResult{Status: "warn", Message: "no scan completed yet"}
	} else {
		checks["scan"] = CheckResult{
			Status:  "pass",
			Message: fmt.Sprintf("last scan %s ago", time.Since(scanStatus.LastScanAt).Round(time.Second)),
		}
	}

	if h.db == nil || !h.db.IsEnabled() {
		checks["database"] = CheckResult{Status: "warn", Message: "database persistence disabled"}
	} else if err := h.db.Health().Ping(r.Context()); err != nil {
		checks["database"] = CheckResult{Status: "fail", Message: err.Error()}
	} else {
		checks["database"] = CheckResult{Status: "pass"}
	}

	if goroutines := runtime.NumGoroutine(); goroutines > 1000 {
		checks["goroutines"] = CheckResult{
			Status:  "warn",
			Message: fmt.Sprintf("high goroutine count: %d", goroutines),
		}
	} else {
		checks["goroutines"] = CheckResult{Status: "pass"}
	}

	status := "healthy"
	for _, check := range checks {
		switch check.Status {
		case "fail":
			status = "unhealthy"
		case "warn":
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemAllocMB:    m.Alloc / 1024 / 1024,
			MemSysMB:      m.Sys / 1024 / 1024,
			NumGC:         m.NumGC,
		},
		Checks: checks,
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

// Status aggregates runtime state across the scan, websocket, and
// persistence subsystems
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Timestamp:        time.Now().UTC(),
		Version:          h.version,
		Uptime:           time.Since(h.startTime).Round(time.Second).String(),
		Scan:             h.scans.CurrentStatus(),
		WebSocketClients: h.hub.ClientCount(),
	}

	if h.db != nil && h.db.IsEnabled() {
		health := h.db.Health().Health(r.Context())
		response.Database = &DatabaseStatus{
			Enabled: true,
			Health:  &health,
			Stats:   h.db.Health().Stats(r.Context()),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// Analyze runs a fresh analysis of one symbol and returns the result
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be JSON with a symbol field")
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "symbol is required")
		return
	}

	report, err := h.scans.ScanSymbols(r.Context(), []string{req.Symbol})
	if err != nil {
		if errors.Is(err, scan.ErrScanRunning) {
			writeError(w, r, http.StatusConflict, "scan_in_progress", "a scan is already running, retry shortly")
			return
		}
		log.Error().Err(err).Str("symbol", req.Symbol).Msg("Analysis failed")
		writeError(w, r, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	if report.Analyzed == 0 {
		writeError(w, r, http.StatusBadGateway, "analysis_failed",
			fmt.Sprintf("no providers returned data for %s", req.Symbol))
		return
	}

	writeJSON(w, http.StatusOK, report.Results[0])
}

// Scan launches a watchlist sweep in the background and acknowledges it
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = h.scans.Symbols()
	}

	if h.scans.CurrentStatus().Scanning {
		writeError(w, r, http.StatusConflict, "scan_in_progress", "a scan is already running")
		return
	}

	// Detached from the request context: the sweep outlives this response
	go func() {
		if _, err := h.scans.ScanSymbols(context.Background(), symbols); err != nil {
			log.Error().Err(err).Msg("Background scan failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, ScanStartedResponse{
		Status:  "started",
		Symbols: len(symbols),
	})
}

// TopOpportunities returns the best-scoring analyses from the latest results
func (h *Handlers) TopOpportunities(w http.ResponseWriter, r *http.Request) {
	minScore := h.minScore
	if v := r.URL.Query().Get("min_score"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 || parsed > 100 {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "min_score must be a number between 0 and 100")
			return
		}
		minScore = parsed
	}

	limit := h.topLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, r, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	results := h.scans.Top(minScore, limit)
	writeJSON(w, http.StatusOK, TopResponse{
		Timestamp: time.Now().UTC(),
		MinScore:  minScore,
		Limit:     limit,
		Count:     len(results),
		Results:   results,
	})
}

// Alerts returns the latest alerts bucketed by priority
func (h *Handlers) Alerts(w http.ResponseWriter, r *http.Request) {
	buckets := h.scans.AlertsByPriority()

	counts := make(map[domain.Priority]int, len(buckets))
	for priority, alerts := range buckets {
		counts[priority] = len(alerts)
	}

	writeJSON(w, http.StatusOK, AlertsResponse{
		Timestamp: time.Now().UTC(),
		Counts:    counts,
		Alerts:    buckets,
	})
}

// NotFound handles unmatched routes
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		fmt.Sprintf("endpoint %s not found", r.URL.Path))
}

// writeJSON writes data as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value("request_id").(string)
	if requestID == "" {
		requestID = "unknown"
	}

	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}
