// Package realtime pushes row change events to connected WebSocket clients.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"

	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 2 * pingInterval
	sendBuffer   = 64
)

// Event describes a change to one of the user's rows.
type Event struct {
	Table     string    `json:"table"`
	Action    string    `json:"action"`
	Record    any       `json:"record"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events to a user's subscribers.
type Publisher interface {
	Publish(userID string, ev Event)
}

// Hub tracks subscribers per user.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

type client struct {
	userID string
	send   chan Event
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Hub) register(userID string) *client {
	c := &client{userID: userID, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	c.close()
}

// Subscribers returns the number of live connections for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Publish queues ev for every connection of userID. Connections whose
// buffer is full are dropped.
func (h *Hub) Publish(userID string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients[userID] {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn().Str("user_id", userID).Msg("Dropping slow realtime subscriber")
		h.unregister(c)
	}
}

// Serve upgrades the request and streams userID's events until the client
// disconnects or is dropped.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("WebSocket upgrade failed")
		return
	}

	c := h.register(userID)
	h.log.Info().Str("user_id", userID).Msg("Realtime subscriber connected")

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, c, done)

	h.unregister(c)
	conn.Close()
	h.log.Info().Str("user_id", userID).Msg("Realtime subscriber disconnected")
}

// readPump discards client messages and tracks pongs; it closes done when
// the connection fails.
func (h *Hub) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
