// Package feed broadcasts committed receipts and graduation events to
// websocket subscribers. The hub is a fan-out sink: it never blocks the
// trade path, and a subscriber that cannot keep up is dropped rather than
// backpressured into the engine.
package feed

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"curve-launchpad/internal/domain"
	"curve-launchpad/internal/observability"
)

// Event types on the wire.
const (
	EventTrade      = "trade"
	EventGraduation = "graduation"
)

// Envelope wraps every message sent to subscribers.
type Envelope struct {
	Type       string                  `json:"type"`
	Trade      *domain.TradeReceipt    `json:"trade,omitempty"`
	Graduation *domain.GraduationEvent `json:"graduation,omitempty"`
}

// Options configures a Hub.
type Options struct {
	// MaxPendingMessages is the per-client send buffer; a client whose
	// buffer is full gets disconnected.
	MaxPendingMessages int
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is the keepalive period.
	PingInterval time.Duration
	Logger       *log.Logger
}

// Hub maintains the set of active subscribers.
type Hub struct {
	opts     Options
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a Hub.
func NewHub(opts Options) *Hub {
	if opts.MaxPendingMessages <= 0 {
		opts.MaxPendingMessages = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[feed] ", log.LstdFlags)
	}
	return &Hub{
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.opts.Logger.Printf("upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.opts.MaxPendingMessages),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.DefaultMetrics.FeedClients.Set(float64(n))

	go h.writePump(c)
	go h.readPump(c)
}

// PublishReceipt broadcasts a committed trade.
func (h *Hub) PublishReceipt(_ context.Context, r *domain.TradeReceipt) {
	h.broadcast(Envelope{Type: EventTrade, Trade: r})
}

// PublishGraduation broadcasts a graduation event.
func (h *Hub) PublishGraduation(_ context.Context, e *domain.GraduationEvent) {
	h.broadcast(Envelope{Type: EventGraduation, Graduation: e})
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all subscribers and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	observability.DefaultMetrics.FeedClients.Set(0)
}

func (h *Hub) broadcast(env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		h.opts.Logger.Printf("ERROR marshal %s event: %v", env.Type, err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		observability.DefaultMetrics.FeedEventsDropped.Inc()
		h.opts.Logger.Printf("dropping slow subscriber %s", c.conn.RemoteAddr())
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		observability.DefaultMetrics.FeedClients.Set(float64(n))
	}
}

// writePump drains the send buffer onto the wire and keeps the connection
// alive with pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way. It exists to
// observe the close handshake.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}
