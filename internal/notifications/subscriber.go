package notifications

import (
	"context"
	"sync"
	"time"

	"spaceofthoughts/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingInterval = idleTimeout * 9 / 10

	// Subscribers only send control frames and close messages.
	maxInboundFrame = 512

	sendBuffer = 64
)

var dropNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// Subscriber is one feed websocket. The hub fills Send; WritePump drains it.
type Subscriber struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	hub       *Hub
	topics    map[string]struct{}
	closeOnce sync.Once
}

func newSubscriber(hub *Hub, conn *websocket.Conn, topics []string) *Subscriber {
	s := &Subscriber{
		ID:     uuid.NewString(),
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		hub:    hub,
		topics: make(map[string]struct{}, len(topics)),
	}
	for _, t := range topics {
		if t != "" {
			s.topics[t] = struct{}{}
		}
	}
	return s
}

// Wants reports whether topic passes the subscriber's filter. No filter means everything.
func (s *Subscriber) Wants(topic string) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// ReadPump blocks until the peer goes away, then unregisters the subscriber.
func (s *Subscriber) ReadPump() {
	reason := "closed"
	defer func() {
		s.hub.Unregister(s)
		_ = s.Conn.Close()
		s.hub.log.LogDisconnect(context.Background(), s.ID, reason)
	}()

	s.Conn.SetReadLimit(maxInboundFrame)
	extend := func() error { return s.Conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	_ = extend()
	s.Conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, _, err := s.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			s.hub.log.LogError(context.Background(), err, "read")
			reason = "error"
		}
		return
	}
}

// WritePump writes queued events and keepalive pings until Send is closed
// or a write fails.
func (s *Subscriber) WritePump() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = s.Conn.Close()
	}()

	for {
		var (
			kind int
			data []byte
		)
		select {
		case msg, ok := <-s.Send:
			if !ok {
				kind, data = websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			} else {
				kind, data = websocket.TextMessage, msg
			}
		case <-ping.C:
			kind = websocket.PingMessage
		}

		_ = s.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.Conn.WriteMessage(kind, data); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}

// Offer queues msg without blocking. When the queue is full msg is dropped
// and a drop notice is queued if there is room, so the client knows to re-fetch.
func (s *Subscriber) Offer(msg []byte) {
	// Send may already be closed by Unregister or Shutdown.
	defer func() {
		if recover() != nil {
			observability.FeedDrops.WithLabelValues(s.hub.Name(), "closed").Inc()
		}
	}()

	select {
	case s.Send <- msg:
		return
	default:
	}
	observability.FeedDrops.WithLabelValues(s.hub.Name(), "full").Inc()
	select {
	case s.Send <- dropNotice:
	default:
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.Send) })
}
