// Package gateway bridges club broadcast topics onto WebSocket connections.
// It never talks to the database: everything it serves arrives over the bus.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"

	"github.com/bmxtools/raceday/app/shared/attr"
	"github.com/bmxtools/raceday/pkg/jwt"
)

// Subscriber is the slice of the event bus the hub needs.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

const (
	// clientBuffer bounds per-connection backlog. A client that cannot drain
	// this many frames is dropped; it re-fetches state on reconnect.
	clientBuffer = 32

	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans bus messages out to WebSocket clients grouped by topic. Each topic
// gets one bus subscription, created when the first client arrives.
type Hub struct {
	logger   *slog.Logger
	bus      Subscriber
	sessions jwt.Service
	upgrader websocket.Upgrader

	mu      sync.Mutex
	topics  map[string]map[*client]struct{}
	started map[string]bool

	ctx context.Context
}

// NewHub creates a hub. ctx bounds every topic subscription the hub opens.
func NewHub(ctx context.Context, bus Subscriber, sessions jwt.Service, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:   logger,
		bus:      bus,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		topics:  make(map[string]map[*client]struct{}),
		started: make(map[string]bool),
		ctx:     ctx,
	}
}

// ServeWS upgrades the request and attaches the connection to its topic.
// Admin topics require a valid session token in the "token" query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if !validTopic(topic) {
		http.Error(w, "invalid topic", http.StatusBadRequest)
		return
	}

	if adminTopic(topic) {
		claims, err := h.sessions.ValidateToken(r.URL.Query().Get("token"))
		if err != nil || time.Now().After(claims.ExpiresAt.Time) {
			http.Error(w, "session required", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", attr.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if err := h.attach(topic, c); err != nil {
		h.logger.Error("Failed to subscribe topic", attr.String("topic", topic), attr.Error(err))
		conn.Close()
		return
	}

	go h.writeLoop(topic, c)
	go h.readLoop(topic, c)
}

func (h *Hub) attach(topic string, c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*client]struct{})
	}
	h.topics[topic][c] = struct{}{}

	if h.started[topic] {
		return nil
	}
	msgs, err := h.bus.Subscribe(h.ctx, topic)
	if err != nil {
		delete(h.topics[topic], c)
		return err
	}
	h.started[topic] = true
	go h.fanOut(topic, msgs)
	return nil
}

func (h *Hub) detach(topic string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.topics[topic]; ok {
		delete(clients, c)
	}
}

// fanOut delivers each bus message to every client on the topic. A client
// with a full buffer is dropped rather than letting it stall the rest.
func (h *Hub) fanOut(topic string, msgs <-chan *message.Message) {
	for msg := range msgs {
		h.mu.Lock()
		for c := range h.topics[topic] {
			select {
			case c.send <- msg.Payload:
			default:
				delete(h.topics[topic], c)
				close(c.send)
				h.logger.Warn("Dropping slow client", attr.String("topic", topic))
			}
		}
		h.mu.Unlock()
		msg.Ack()
	}
}

func (h *Hub) writeLoop(topic string, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeTimeout))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.detach(topic, c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.detach(topic, c)
				return
			}
		}
	}
}

// readLoop discards inbound frames; the gateway is broadcast-only. It exists
// to notice closed connections promptly.
func (h *Hub) readLoop(topic string, c *client) {
	defer func() {
		h.detach(topic, c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func validTopic(topic string) bool {
	if !strings.HasPrefix(topic, "club.") {
		return false
	}
	return !strings.Contains(topic, ">") && !strings.Contains(topic, "*")
}

func adminTopic(topic string) bool {
	return strings.Contains(topic, ".admin")
}
