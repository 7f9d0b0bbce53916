// Package notifications publishes content changes and fans them out to live feed clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Topics a content event can belong to. Each maps to one Redis channel.
const (
	TopicPosts      = "posts"
	TopicCategories = "categories"
	TopicImages     = "images"
)

const channelPrefix = "content:"

// Event types carried in ContentEvent.Type.
const (
	EventPostCreated     = "post_created"
	EventPostUpdated     = "post_updated"
	EventPostDeleted     = "post_deleted"
	EventCategoryCreated = "category_created"
	EventCategoryUpdated = "category_updated"
	EventCategoryDeleted = "category_deleted"
	EventImageUploaded   = "image_uploaded"
	EventImageDeleted    = "image_deleted"
)

// ContentEvent is the envelope written to the feed.
type ContentEvent struct {
	Type    string         `json:"type"`
	Topic   string         `json:"-"`
	Payload ContentPayload `json:"payload"`
}

// ContentPayload identifies the changed record.
type ContentPayload struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title,omitempty"`
	URLHandle string    `json:"urlHandle,omitempty"`
	URL       string    `json:"url,omitempty"`
	At        time.Time `json:"at"`
}

// ContentChannel derives the Redis channel name for a topic.
func ContentChannel(topic string) string {
	return channelPrefix + topic
}

// TopicOf returns the topic of a content channel, or "" for foreign channels.
func TopicOf(channel string) string {
	topic, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return ""
	}
	return topic
}

// Notifier publishes content events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishContent sends ev to its topic channel. Without Redis it is a no-op.
func (n *Notifier) PublishContent(ctx context.Context, ev ContentEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.Topic == "" {
		return fmt.Errorf("event %q has no topic", ev.Type)
	}
	if ev.Payload.At.IsZero() {
		ev.Payload.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := n.rdb.Publish(ctx, ContentChannel(ev.Topic), payload).Err(); err != nil {
		return err
	}
	observability.ContentEventsPublished.WithLabelValues(ev.Type).Inc()
	return nil
}

// StartContentSubscriber subscribes to every content channel and calls onMessage
// for each incoming message until ctx is done.
func (n *Notifier) StartContentSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	// Wait for the subscription so events published right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe content channels: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in content subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
