package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const maxTotalConns = 10000

// ErrFeedFull is returned when the connection limit is reached.
var ErrFeedFull = errors.New("server connection limit reached")

// Hub fans content events out to every connected feed client.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Subscriber]struct{}
	maxConns     int
	shutdownOnce sync.Once
	log          *observability.WSLogger
}

// NewHub creates an empty feed hub.
func NewHub() *Hub {
	h := &Hub{
		clients:  make(map[*Subscriber]struct{}),
		maxConns: maxTotalConns,
	}
	h.log = observability.NewWSLogger(h.Name())
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "content feed" }

// Register adds a connection interested in topics. It fails with ErrFeedFull
// once the connection cap is reached.
func (h *Hub) Register(conn *websocket.Conn, topics []string) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxConns {
		return nil, ErrFeedFull
	}
	client := newSubscriber(h, conn, topics)
	h.clients[client] = struct{}{}
	observability.FeedConnections.Inc()
	h.log.LogConnect(context.Background(), client.ID, topics)
	return client, nil
}

// Unregister removes client and closes its send queue.
func (h *Hub) Unregister(client *Subscriber) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if ok {
		observability.FeedConnections.Dec()
		client.close()
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends message to every client subscribed to topic.
func (h *Hub) Broadcast(topic, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.clients {
		if c.Wants(topic) {
			c.Offer(data)
		}
	}
}

// StartWiring subscribes to content channels and forwards events to clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartContentSubscriber(ctx, func(channel, payload string) {
		topic := TopicOf(channel)
		if topic == "" {
			middleware.Logger.Warn("invalid content channel", slog.String("channel", channel))
			return
		}
		h.Broadcast(topic, payload)
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *Hub) Shutdown(_ context.Context) error {
	h.shutdownOnce.Do(func() {
		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[*Subscriber]struct{})
		h.mu.Unlock()

		// WritePump sends the close frame once its queue is closed.
		for client := range clients {
			observability.FeedConnections.Dec()
			client.close()
		}
	})
	return nil
}
