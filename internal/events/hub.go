// Package events pushes controller updates to connected UIs over WebSocket.
package events

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/wander/internal/logger"
)

// Event kinds.
const (
	KindView     = "view"
	KindProgress = "progress"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Event is one message on the stream.
type Event struct {
	Seq     uint64    `json:"seq"`
	Kind    string    `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Progress is the payload of a retry progress event.
type Progress struct {
	Op            string        `json:"op"`
	Attempt       int           `json:"attempt"`
	TotalAttempts int           `json:"total_attempts"`
	Delay         time.Duration `json:"delay_ns"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub fans events out to every connected client. The latest view is
// replayed to a client when it connects.
type Hub struct {
	upgrader websocket.Upgrader
	log      logger.Logger

	mu       sync.RWMutex
	clients  map[*client]struct{}
	seq      uint64
	lastView *Event
	closed   bool
}

// NewHub creates a hub. With no allowed origins only same-host browsers
// may connect.
func NewHub(allowedOrigins []string, log logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	h := &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimRight(r.Header.Get("Origin"), "/")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Publish sends an event to every client. A client that cannot keep up
// misses the event instead of blocking the publisher.
func (h *Hub) Publish(kind string, payload any) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.seq++
	ev := Event{Seq: h.seq, Kind: kind, At: time.Now().UTC(), Payload: payload}
	if kind == KindView {
		h.lastView = &ev
	}
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		select {
		case c.send <- ev:
		default:
			h.log.Warn("event client too slow, dropping event",
				logger.String("kind", kind),
				logger.Uint64("seq", ev.Seq))
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan Event, sendBuffer), done: make(chan struct{})}
	if !h.register(c) {
		c.close()
		return
	}
	h.log.Debug("event client connected", logger.Int("clients", h.Clients()))

	go h.writeLoop(c)
	h.readLoop(c)

	h.unregister(c)
	h.log.Debug("event client disconnected", logger.Int("clients", h.Clients()))
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.lastView != nil {
		c.send <- *h.lastView
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// readLoop discards client messages; it only detects disconnects and pongs.
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("event client read error", logger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.close()
	}
}
