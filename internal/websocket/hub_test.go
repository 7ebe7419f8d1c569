package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churncli/internal/config"
	"churncli/internal/operations"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      30 * time.Second,
		PongWait:        60 * time.Second,
	}
}

// dialHub stands up a hub behind an httptest server and connects one
// client, returning the connection and a cleanup-registered hub.
func dialHub(t *testing.T) (*Hub, *gorilla.Conn) {
	t.Helper()

	hub := NewHub(testLogger())
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Runs on the server goroutine; failures surface as dial errors.
		_ = ServeClient(hub, testWSConfig(), w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return hub, conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(payload, &msg))
	return msg
}

func TestHubWelcomesNewClient(t *testing.T) {
	hub, conn := dialHub(t)

	msg := readMessage(t, conn)
	assert.Equal(t, TypeConnection, msg.Type)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestHubBroadcastReachesClient(t *testing.T) {
	hub, conn := dialHub(t)
	readMessage(t, conn) // connection envelope

	hub.Broadcast(Message{Type: "test", Data: "payload"})

	msg := readMessage(t, conn)
	assert.Equal(t, "test", msg.Type)
	assert.Equal(t, "payload", msg.Data)
}

func TestBroadcastRunUpdateMessageTypes(t *testing.T) {
	tests := []struct {
		status   operations.RunStatus
		wantType string
	}{
		{operations.RunStatusPending, TypeRunProgress},
		{operations.RunStatusRunning, TypeRunProgress},
		{operations.RunStatusCompleted, TypeRunStatus},
		{operations.RunStatusFailed, TypeRunStatus},
	}

	hub, conn := dialHub(t)
	readMessage(t, conn)

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			hub.BroadcastRunUpdate(operations.Summary{ID: "run-1", Status: tt.status})

			msg := readMessage(t, conn)
			assert.Equal(t, tt.wantType, msg.Type)

			data, ok := msg.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, "run-1", data["id"])
			assert.Equal(t, string(tt.status), data["status"])
		})
	}
}

func TestHubClientCountTracksDisconnect(t *testing.T) {
	hub, conn := dialHub(t)
	readMessage(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Start()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeClient(hub, testWSConfig(), w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
