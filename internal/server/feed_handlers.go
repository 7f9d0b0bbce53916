package server

import (
	"log/slog"
	"strings"

	"spaceofthoughts/internal/featureflags"
	"spaceofthoughts/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const topicsLocal = "feedTopics"

// FeedUpgrade gates /api/ws/feed. The optional topics query parameter is a
// comma separated list of posts, categories and images.
func (s *Server) FeedUpgrade(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.LiveFeed, c.IP()) {
		return fiber.ErrNotFound
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	var topics []string
	for _, t := range strings.Split(c.Query("topics"), ",") {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			topics = append(topics, t)
		}
	}
	c.Locals(topicsLocal, topics)
	return c.Next()
}

// FeedHandler streams content events to an anonymous read-only client.
func (s *Server) FeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		topics, _ := conn.Locals(topicsLocal).([]string)

		client, err := s.hub.Register(conn, topics)
		if err != nil {
			middleware.Logger.Warn("feed connection refused", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
