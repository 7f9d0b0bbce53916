package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAttemptLimiter_Disabled(t *testing.T) {
	l := NewAttemptLimiter(nil, false)
	for i := 0; i < 5; i++ {
		ok, _, err := l.Allow(context.Background(), "login", "ip:1", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestAttemptLimiter_NoStore(t *testing.T) {
	ok, _, err := NewAttemptLimiter(nil, true).Allow(context.Background(), "login", "ip:1", 1, time.Minute)
	assert.ErrorIs(t, err, errNoStore)
	assert.False(t, ok)
}

func TestAttemptLimiter_Window(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	l := NewAttemptLimiter(rdb, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "login", "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, retry, err := l.Allow(ctx, "login", "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	ok, _, err = l.Allow(ctx, "login", "ip:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other callers have their own window")

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = l.Allow(ctx, "login", "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAttemptLimiter_Limit(t *testing.T) {
	_, rdb := newMiniRedis(t)
	l := NewAttemptLimiter(rdb, true)

	app := fiber.New()
	app.Post("/login", l.Limit("login", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	var last *http.Response
	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		last = resp
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	assert.Equal(t, "60", last.Header.Get("Retry-After"))
}

func TestAttemptLimiter_RedisDown(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	mr.Close()

	handler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	open := NewAttemptLimiter(rdb, true)
	closed := NewAttemptLimiter(rdb, true)
	closed.FailClosed = true

	app := fiber.New()
	app.Get("/open", open.Limit("open", 1, time.Minute), handler)
	app.Get("/closed", closed.Limit("closed", 1, time.Minute), handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/closed", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
