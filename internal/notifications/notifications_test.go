package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb
}

func TestContentChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "content:posts", ContentChannel(TopicPosts))
	assert.Equal(t, TopicImages, TopicOf("content:images"))
	assert.Equal(t, "", TopicOf("notifications:user:1"))
}

func TestNotifier_WithoutRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishContent(context.Background(), ContentEvent{Type: EventPostCreated, Topic: TopicPosts}))
	assert.NoError(t, n.StartContentSubscriber(context.Background(), func(string, string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishContent(context.Background(), ContentEvent{}))
}

func TestNotifier_RequiresTopic(t *testing.T) {
	n := NewNotifier(newRedis(t))
	assert.Error(t, n.PublishContent(context.Background(), ContentEvent{Type: EventPostCreated}))
}

func TestHub_BroadcastHonoursTopics(t *testing.T) {
	hub := NewHub()
	all, err := hub.Register(nil, nil)
	require.NoError(t, err)
	imagesOnly, err := hub.Register(nil, []string{TopicImages})
	require.NoError(t, err)
	assert.Equal(t, 2, hub.Count())

	hub.Broadcast(TopicPosts, "post")
	hub.Broadcast(TopicImages, "image")

	assert.Equal(t, "post", string(<-all.Send))
	assert.Equal(t, "image", string(<-all.Send))
	assert.Equal(t, "image", string(<-imagesOnly.Send))
	assert.Empty(t, imagesOnly.Send)

	hub.Unregister(all)
	assert.Equal(t, 1, hub.Count())
	_, open := <-all.Send
	assert.False(t, open)

	// Offering to an unregistered subscriber must not panic.
	all.Offer([]byte("late"))

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Zero(t, hub.Count())
	require.NoError(t, hub.Shutdown(context.Background()))
}

func TestHub_ConnectionLimit(t *testing.T) {
	hub := NewHub()
	hub.maxConns = 1

	_, err := hub.Register(nil, nil)
	require.NoError(t, err)
	_, err = hub.Register(nil, nil)
	assert.ErrorIs(t, err, ErrFeedFull)

	_ = hub.Shutdown(context.Background())
}

func TestSubscriber_OfferDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(nil, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		c.Offer([]byte("x"))
	}
	c.Offer([]byte("overflow"))
	require.Len(t, c.Send, sendBuffer)

	for i := 0; i < sendBuffer; i++ {
		assert.Equal(t, "x", string(<-c.Send))
	}

	_ = hub.Shutdown(context.Background())
}

func TestHub_StartWiringDeliversPublishedEvents(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, hub.StartWiring(ctx, n))
	client, err := hub.Register(nil, []string{TopicPosts})
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, n.PublishContent(ctx, ContentEvent{
		Type:    EventPostCreated,
		Topic:   TopicPosts,
		Payload: ContentPayload{ID: id, Title: "Hello", URLHandle: "hello"},
	}))
	require.NoError(t, n.PublishContent(ctx, ContentEvent{
		Type:    EventImageUploaded,
		Topic:   TopicImages,
		Payload: ContentPayload{ID: uuid.New()},
	}))

	var got map[string]any
	assert.Eventually(t, func() bool {
		select {
		case msg := <-client.Send:
			return json.Unmarshal(msg, &got) == nil
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)

	assert.Equal(t, EventPostCreated, got["type"])
	payload, ok := got["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id.String(), payload["id"])
	assert.Equal(t, "hello", payload["urlHandle"])
	assert.NotEmpty(t, payload["at"])

	assert.Never(t, func() bool { return len(client.Send) > 0 }, 100*time.Millisecond, testPollInterval)

	_ = hub.Shutdown(context.Background())
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	rdb := newRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.StartContentSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.PublishContent(context.Background(), ContentEvent{Type: EventCategoryCreated, Topic: TopicCategories}))
	assert.Eventually(t, func() bool { return len(payloads) == 1 }, testEventuallyTimeout, testPollInterval)

	cancel()
	time.Sleep(20 * time.Millisecond)
	<-payloads

	require.NoError(t, n.PublishContent(context.Background(), ContentEvent{Type: EventCategoryDeleted, Topic: TopicCategories}))
	assert.Never(t, func() bool { return len(payloads) > 0 }, 200*time.Millisecond, testPollInterval)
}
