package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, no cross-origin policy
	},
}

// recentEventCap bounds the replay buffer handed to newly connected clients.
const recentEventCap = 100

// WebSocketHandler fans the progress stream out to connected clients. It
// implements interfaces.ProgressSink, so the pipeline publishes straight
// into it; slow or broken clients are dropped rather than stalling a run.
type WebSocketHandler struct {
	logger arbor.ILogger

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
	recent  []models.ProgressEvent
}

func NewWebSocketHandler(logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		logger:  logger,
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWebSocket handles GET /ws: upgrades the connection, replays recent
// events and keeps the client registered until it disconnects.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	writeMu := &sync.Mutex{}

	h.mu.Lock()
	h.clients[conn] = writeMu
	replay := make([]models.ProgressEvent, len(h.recent))
	copy(replay, h.recent)
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client connected")

	for _, event := range replay {
		if !h.send(conn, writeMu, event) {
			return
		}
	}

	// Read loop exists only to notice the client going away.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish broadcasts one progress event to every connected client.
func (h *WebSocketHandler) Publish(event models.ProgressEvent) {
	h.mu.Lock()
	h.recent = append(h.recent, event)
	if len(h.recent) > recentEventCap {
		h.recent = h.recent[len(h.recent)-recentEventCap:]
	}
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, mu := range h.clients {
		conns[conn] = mu
	}
	h.mu.Unlock()

	for conn, mu := range conns {
		h.send(conn, mu, event)
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, writeMu *sync.Mutex, event models.ProgressEvent) bool {
	writeMu.Lock()
	err := conn.WriteJSON(event)
	writeMu.Unlock()
	if err != nil {
		h.drop(conn)
		return false
	}
	return true
}

func (h *WebSocketHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

var _ interfaces.ProgressSink = (*WebSocketHandler)(nil)
