package engine

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Broadcast writes and keepalive pings target the same connection from
// different goroutines; both must go through the connection's write mutex
// or gorilla/websocket detects the concurrent write and panics.
func TestWSHub_BroadcastsThroughKeepalivePings(t *testing.T) {
	hub := NewWSHub()
	hub.pingInterval = time.Millisecond
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// Registration goes through the hub loop; wait for it.
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	const messages = 50
	go func() {
		for i := 0; i < messages; i++ {
			hub.Broadcast(WSMessage{Type: "trade_committed", Symbol: "WETH"})
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for received := 0; received < messages; received++ {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed after %d messages: %v", received, err)
		}
		if msg.Type != "trade_committed" {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
	}
}
