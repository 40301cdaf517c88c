package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWebSocket(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/alerts"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestAlertHub_StreamsScanReports(t *testing.T) {
	scans := newTestScans(nil, "GME")
	server := newTestServer(t, Dependencies{Scans: scans})

	ts := httptest.NewServer(server.router)
	defer ts.Close()

	conn := dialWebSocket(t, ts)
	defer conn.Close()

	// The first frame is the current scan status
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initial WSMessage
	require.NoError(t, conn.ReadJSON(&initial))
	assert.Equal(t, "status", initial.Type)

	require.Eventually(t, func() bool {
		return server.hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	_, err := scans.Scan(context.Background())
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame WSMessage
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "scan_report", frame.Type)

	raw, err := json.Marshal(frame.Payload)
	require.NoError(t, err)

	var broadcast ScanBroadcast
	require.NoError(t, json.Unmarshal(raw, &broadcast))
	assert.Equal(t, 1, broadcast.Analyzed)
	assert.Zero(t, broadcast.Failed)
}

func TestAlertHub_RemovesDisconnectedClients(t *testing.T) {
	server := newTestServer(t, Dependencies{})

	ts := httptest.NewServer(server.router)
	defer ts.Close()

	conn := dialWebSocket(t, ts)

	require.Eventually(t, func() bool {
		return server.hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return server.hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestAlertHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewAlertHub(nil)

	hub.Broadcast(WSMessage{Type: "status", Payload: "ok"})

	assert.Zero(t, hub.ClientCount())
}
