package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard runs on a different port.
		return true
	},
}

// Handler upgrades connections and keeps them registered until they drop.
type Handler struct {
	hub *EventHub
	log *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *EventHub, log *zap.Logger) *Handler {
	return &Handler{hub: hub, log: log}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	h.hub.Register(conn)
	go h.readPump(conn)
}

// readPump drains client messages so pings are answered and the close
// handshake is observed.
func (h *Handler) readPump(conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
