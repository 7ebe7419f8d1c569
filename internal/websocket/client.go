package websocket

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"churncli/internal/config"
)

// Client is one connected dashboard session. The server only writes;
// reads exist to process control frames and detect disconnects.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte

	closeOnce sync.Once
	done      chan struct{}

	pingPeriod time.Duration
	pongWait   time.Duration
}

// Upgrader builds the HTTP upgrader from websocket configuration.
func Upgrader(cfg config.WebSocketConfig) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// Dashboard and API share an origin in this deployment.
			return true
		},
	}
}

// ServeClient upgrades the request and attaches the connection to the hub.
func ServeClient(hub *Hub, cfg config.WebSocketConfig, w http.ResponseWriter, r *http.Request) error {
	upgrader := Upgrader(cfg)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		out:        make(chan []byte, 32),
		done:       make(chan struct{}),
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait,
	}

	hub.register <- client
	go client.writeLoop()
	go client.readLoop()
	return nil
}

// send queues a payload for the client, dropping it when the client's
// buffer is full (a slow dashboard never blocks the pipeline).
func (c *Client) send(payload []byte) {
	select {
	case c.out <- payload:
	case <-c.done:
	default:
		slog.Warn("dropping websocket message, client buffer full")
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
