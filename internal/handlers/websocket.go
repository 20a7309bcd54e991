package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler streams lifecycle events to connected clients. Every
// published event is forwarded as one JSON message.
type WebSocketHandler struct {
	logger      arbor.ILogger
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex
	mu          sync.RWMutex
}

// NewWebSocketHandler creates the handler and subscribes it to all events
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:      logger,
		clients:     make(map[*websocket.Conn]bool),
		clientMutex: make(map[*websocket.Conn]*sync.Mutex),
	}

	eventService.SubscribeAll(func(ctx context.Context, event models.Event) error {
		h.broadcast(event)
		return nil
	})

	return h
}

// HandleWebSocket handles GET /ws connection upgrades
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("remote", r.RemoteAddr).
		Int("clients", clientCount).
		Msg("WebSocket client connected")

	// Read loop exists only to detect disconnects; clients don't send
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast sends an event to every connected client
func (h *WebSocketHandler) broadcast(event models.Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.mu.RLock()
		connMu := h.clientMutex[conn]
		h.mu.RUnlock()
		if connMu == nil {
			continue
		}

		connMu.Lock()
		err := conn.WriteJSON(event)
		connMu.Unlock()

		if err != nil {
			h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
			h.removeClient(conn)
		}
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	clientCount := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Debug().
		Int("clients", clientCount).
		Msg("WebSocket client disconnected")
}
