// Package websocket streams pipeline run progress to connected
// dashboard sessions. The hub fans one JSON message out to every
// client; clients are write-only from the server's point of view.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"churncli/internal/operations"
)

// Message types sent to clients.
const (
	TypeConnection  = "connection"
	TypeRunStatus   = "run:status"
	TypeRunProgress = "run:progress"
)

// Message is the envelope for every hub broadcast.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	quit       chan struct{}
	running    bool
}

// NewHub creates a hub. A nil logger falls back to slog.Default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		quit:       make(chan struct{}),
	}
}

// Start launches the hub loop. Safe to call once.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop shuts the hub down and disconnects all clients.
func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub shut down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("clients", count))
			client.send(mustMarshal(Message{Type: TypeConnection}))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				client.close()
				delete(h.clients, client)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("clients", count))

		case payload := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				client.send(payload)
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastRunUpdate implements operations.StatusBroadcaster.
func (h *Hub) BroadcastRunUpdate(summary operations.Summary) {
	msgType := TypeRunProgress
	if summary.Status == operations.RunStatusCompleted || summary.Status == operations.RunStatusFailed {
		msgType = TypeRunStatus
	}
	h.Broadcast(Message{Type: msgType, Data: summary})
}

// Broadcast sends a message to every connected client. Messages are
// dropped when the hub is stopped.
func (h *Hub) Broadcast(msg Message) {
	payload := mustMarshal(msg)
	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func mustMarshal(msg Message) []byte {
	payload, err := json.Marshal(msg)
	if err != nil {
		// Summaries and envelopes are plain data; marshal cannot fail
		// for them in practice.
		return []byte(`{"type":"error"}`)
	}
	return payload
}
