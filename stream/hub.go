// Package stream publishes solver frames to websocket clients as JSON.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/flex/solver"
)

// Message is the envelope of everything sent to clients.
type Message struct {
	Type  string        `json:"type"` // "frame"
	Frame *solver.Frame `json:"frame,omitempty"`
}

// Command is a control message sent by a client. Nil fields are unset.
type Command struct {
	Paused    *bool     `json:"paused,omitempty"`
	TimeScale *float64  `json:"time_scale,omitempty"`
	Gravity   []float64 `json:"gravity,omitempty"`
	Reset     bool      `json:"reset,omitempty"`
}

// Hub fans frames out to every connected client. Each connection has its
// own write lock; a client whose write fails is dropped.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	last    []byte

	commands chan Command
}

// NewHub creates a hub. Commands from clients are buffered up to
// queue; further commands are dropped until the queue is drained.
func NewHub(logger *slog.Logger, queue int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:   logger,
		clients:  make(map[*websocket.Conn]*sync.Mutex),
		commands: make(chan Command, max(queue, 1)),
	}
}

// ServeHTTP upgrades the request, sends the latest frame and then reads
// commands until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	lock := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = lock
	last := h.last
	h.mu.Unlock()
	defer h.remove(conn)
	h.logger.Debug("client connected", "remote", r.RemoteAddr)

	if last != nil {
		lock.Lock()
		err := conn.WriteMessage(websocket.TextMessage, last)
		lock.Unlock()
		if err != nil {
			return
		}
	}

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		select {
		case h.commands <- cmd:
		default:
			h.logger.Debug("command dropped")
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Commands returns the channel of client commands.
func (h *Hub) Commands() <-chan Command { return h.commands }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish encodes a frame once and sends it to every client.
func (h *Hub) Publish(f solver.Frame) error {
	data, err := json.Marshal(Message{Type: "frame", Frame: &f})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.last = data
	h.mu.Unlock()

	var failed []*websocket.Conn
	h.mu.RLock()
	for conn, lock := range h.clients {
		lock.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		lock.Unlock()
		if err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			conn.Close()
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	if len(failed) > 0 {
		h.mu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, lock := range h.clients {
		lock.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		lock.Unlock()
		conn.Close()
		delete(h.clients, conn)
	}
}
