package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"camgate/internal/events"
)

// EventHub pushes newly persisted events to connected dashboard clients.
type EventHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	log     *zap.Logger
}

// NewEventHub creates a new event hub
func NewEventHub(log *zap.Logger) *EventHub {
	return &EventHub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

// Register adds a client connection
func (h *EventHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.log.Debug("ws client registered", zap.Int("total", len(h.clients)))
}

// Unregister removes a client connection
func (h *EventHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	h.log.Debug("ws client unregistered", zap.Int("total", len(h.clients)))
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent sends an event to all connected clients. Dead
// connections are dropped on write failure.
func (h *EventHub) BroadcastEvent(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event for broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("ws write failed, dropping client", zap.Error(err))
			h.Unregister(conn)
			conn.Close()
		}
	}
}
