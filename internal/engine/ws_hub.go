// WebSocket hub for real-time trade and portfolio broadcasting.
package engine

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/basesim/trade-engine/internal/metrics"
)

// WSMessage is a JSON message sent to WebSocket clients after a commit.
type WSMessage struct {
	Type       string `json:"type"`
	Wallet     string `json:"wallet"`
	ContractID string `json:"contract_id"`
	Symbol     string `json:"symbol,omitempty"`
	Side       string `json:"side,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Price      string `json:"price,omitempty"`
	Balance    string `json:"balance,omitempty"`
	TotalValue string `json:"total_value,omitempty"`
}

// WSHub manages WebSocket connections and broadcasts messages to all
// connected clients when a trade commits. Each connection carries its own
// write mutex: the broadcast loop and the per-connection ping writer both
// write to the socket, and gorilla/websocket allows only one writer at a
// time.
type WSHub struct {
	clients    map[*websocket.Conn]*sync.Mutex
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	pingInterval time.Duration
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:      make(map[*websocket.Conn]*sync.Mutex),
		broadcast:    make(chan []byte, 256),
		register:     make(chan *websocket.Conn),
		unregister:   make(chan *websocket.Conn),
		pingInterval: 30 * time.Second,
	}
}

// Run starts the hub's main event loop. Must be called in a goroutine.
func (h *WSHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = &sync.Mutex{}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Inc()
			slog.Info("ws client connected", "total", total)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				metrics.WebSocketClients.Dec()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			// Write lock: failed writes evict the client in place.
			h.mu.Lock()
			for conn, wmu := range h.clients {
				wmu.Lock()
				err := conn.WriteMessage(websocket.TextMessage, msg)
				wmu.Unlock()
				if err != nil {
					conn.Close()
					delete(h.clients, conn)
					metrics.WebSocketClients.Dec()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Drop if buffer full to avoid blocking trade execution.
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// HandleWS handles WebSocket upgrade requests at GET /api/v1/ws.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	h.register <- conn

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer func() { h.unregister <- conn }()
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	// Ping ticker to keep connection alive through proxies. The write is
	// taken under the connection's write mutex so it can never interleave
	// with a broadcast write.
	go func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for range ticker.C {
			h.mu.RLock()
			wmu, ok := h.clients[conn]
			h.mu.RUnlock()
			if !ok {
				return
			}
			wmu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			wmu.Unlock()
			if err != nil {
				return
			}
		}
	}()
}
