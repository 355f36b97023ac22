package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"camgate/internal/events"
)

func dialTestHub(t *testing.T) (*EventHub, *websocket.Conn) {
	t.Helper()
	hub := NewEventHub(zap.NewNop())
	srv := httptest.NewServer(NewHandler(hub, zap.NewNop()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)
	return hub, conn
}

func TestBroadcastReachesClient(t *testing.T) {
	hub, conn := dialTestHub(t)

	sent := events.Event{
		ID:         "ev-1",
		CameraID:   "cam1",
		Timestamp:  time.Now(),
		ImagePath:  "snap.jpg",
		Confidence: 0.88,
	}
	hub.BroadcastEvent(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got events.Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, sent.CameraID, got.CameraID)
	assert.InDelta(t, sent.Confidence, got.Confidence, 1e-9)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, conn := dialTestHub(t)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	// Broadcasting with no clients is a no-op.
	hub.BroadcastEvent(events.Event{ID: "ev-2"})
}
