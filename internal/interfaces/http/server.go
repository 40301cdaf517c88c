// Package http serves the REST and websocket API over the scan, watchlist,
// and persistence services.
package http

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/infrastructure/db"
	"github.com/sawpanic/stockrun/internal/scan"
	"github.com/sawpanic/stockrun/internal/watchlist"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration. The HTTP_PORT
// environment variable overrides the port when set.
func DefaultServerConfig() ServerConfig {
	port := 8080
	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil && p > 0 && p < 65536 {
			port = p
		}
	}

	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Dependencies carries the services the API exposes. Watchlist, DB, and
// Metrics are optional; endpoints backed by an absent service respond 503.
type Dependencies struct {
	Scans     *scan.Service
	Watchlist *watchlist.Service
	DB        *db.Manager
	Metrics   *MetricsRegistry
	Version   string
	MinScore  float64
	TopLimit  int
}

// Server wraps the HTTP server with its router and handlers
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	hub      *AlertHub
	config   ServerConfig
}

// NewServer creates the API server, verifies the port is available, and
// subscribes the websocket hub and metrics to completed scans.
func NewServer(config ServerConfig, deps Dependencies) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is not available: %w", config.Port, err)
	}
	listener.Close()

	hub := NewAlertHub(deps.Scans)
	if deps.Scans != nil {
		deps.Scans.AddSink(hub)
		if deps.Metrics != nil {
			deps.Scans.AddSink(deps.Metrics)
		}
	}

	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(deps, hub),
		hub:      hub,
		config:   config,
	}

	s.setupRoutes(deps.Metrics)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

func (s *Server) setupRoutes(metrics *MetricsRegistry) {
	s.router.Use(requestIDMiddleware)
	s.router.Use(requestLoggingMiddleware)
	s.router.Use(timeoutMiddleware)
	s.router.Use(corsMiddleware)

	// Browser preflights for the POST and DELETE endpoints. corsMiddleware
	// short-circuits these with the CORS headers.
	s.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	// The websocket and Prometheus endpoints write their own content types
	s.router.HandleFunc("/ws/alerts", s.hub.HandleWebSocket).Methods("GET")
	if metrics != nil {
		s.router.Handle("/metrics", metrics.MetricsHandler()).Methods("GET")
	}

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/status", s.handlers.Status).Methods("GET")
	api.HandleFunc("/analyze", s.handlers.Analyze).Methods("POST")
	api.HandleFunc("/scan", s.handlers.Scan).Methods("POST")
	api.HandleFunc("/top-opportunities", s.handlers.TopOpportunities).Methods("GET")
	api.HandleFunc("/alerts", s.handlers.Alerts).Methods("GET")

	// Exact watchlist paths must register before the {symbol} routes
	api.HandleFunc("/watchlist", s.handlers.WatchlistList).Methods("GET")
	api.HandleFunc("/watchlist", s.handlers.WatchlistAdd).Methods("POST")
	api.HandleFunc("/watchlist/summary", s.handlers.WatchlistSummary).Methods("GET")
	api.HandleFunc("/watchlist/movers", s.handlers.WatchlistMovers).Methods("GET")
	api.HandleFunc("/watchlist/{symbol}/history", s.handlers.WatchlistHistory).Methods("GET")
	api.HandleFunc("/watchlist/{symbol}", s.handlers.WatchlistGet).Methods("GET")
	api.HandleFunc("/watchlist/{symbol}", s.handlers.WatchlistRemove).Methods("DELETE")

	api.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// Start begins serving requests. Blocks until the server stops.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the address the server listens on
func (s *Server) GetAddress() string {
	return s.server.Addr
}

// responseWrapper captures the response status code for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging wrapper
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// requestIDMiddleware assigns each request a short id for log correlation
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs each request with its id, status, and timing
func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		requestID, _ := r.Context().Value("request_id").(string)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}

// timeoutMiddleware enforces a per-request deadline. WebSocket upgrades are
// exempt because those connections outlive any request deadline.
func timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}

		timeout := 10 * time.Second
		if r.URL.Path == "/analyze" {
			timeout = 30 * time.Second
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware allows browser dashboards served from localhost
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonContentTypeMiddleware sets the JSON content type for API responses
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
