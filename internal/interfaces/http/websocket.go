package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/stockrun/internal/domain"
	"github.com/sawpanic/stockrun/internal/scan"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Keepalive windows. A client that misses a pong for pongWait is dropped.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSMessage is the envelope for all websocket frames
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ScanBroadcast is the sweep summary pushed to websocket clients
type ScanBroadcast struct {
	StartedAt      time.Time      `json:"started_at"`
	DurationMS     int64          `json:"duration_ms"`
	Analyzed       int            `json:"analyzed"`
	Failed         int            `json:"failed"`
	AboveThreshold []string       `json:"above_threshold"`
	Alerts         []domain.Alert `json:"alerts"`
}

// AlertHub streams scan results to connected websocket clients. It implements
// scan.Sink, so subscribing it to the scan service broadcasts every completed
// sweep.
type AlertHub struct {
	scans *scan.Service

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex
}

// NewAlertHub creates an alert hub. scans may be nil; clients then connect
// without an initial status frame.
func NewAlertHub(scans *scan.Service) *AlertHub {
	return &AlertHub{
		scans:       scans,
		clients:     make(map[*websocket.Conn]bool),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket upgrades the connection and streams scan reports until the
// client disconnects
func (h *AlertHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	h.mu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client connected")

	if h.scans != nil {
		h.send(conn, WSMessage{Type: "status", Payload: h.scans.CurrentStatus()})
	}

	done := make(chan struct{})
	go h.pingLoop(conn, done)

	defer func() {
		close(done)
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		h.mu.Unlock()
		conn.Close()
		log.Debug().Msg("WebSocket client disconnected")
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read error")
			}
			break
		}
	}
}

// pingLoop keeps the connection alive until done closes or a write fails.
func (h *AlertHub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.mu.RLock()
			mu := h.clientMutex[conn]
			h.mu.RUnlock()
			if mu == nil {
				return
			}
			mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			mu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// ScanCompleted broadcasts a finished sweep to all connected clients
func (h *AlertHub) ScanCompleted(report *scan.Report) {
	h.Broadcast(WSMessage{
		Type: "scan_report",
		Payload: ScanBroadcast{
			StartedAt:      report.StartedAt,
			DurationMS:     report.Duration.Milliseconds(),
			Analyzed:       report.Analyzed,
			Failed:         report.Failed,
			AboveThreshold: report.AboveThreshold,
			Alerts:         report.Alerts,
		},
	})
}

// Broadcast sends msg to every connected client
func (h *AlertHub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutexes[i].Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to write to websocket client")
		}
	}
}

// send writes msg to a single client
func (h *AlertHub) send(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	mu := h.clientMutex[conn]
	h.mu.RUnlock()
	if mu == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Warn().Err(err).Msg("Failed to write to websocket client")
	}
}

// ClientCount returns the number of connected clients
func (h *AlertHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
