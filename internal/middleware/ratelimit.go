package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errNoStore = errors.New("attempt store unavailable")

// AttemptLimiter counts attempts against credential endpoints in fixed
// Redis windows. Keys look like "attempts:<action>:<caller>".
type AttemptLimiter struct {
	rdb     *redis.Client
	enabled bool
	// FailClosed answers 503 when Redis cannot be reached instead of letting the attempt through.
	FailClosed bool
}

// NewAttemptLimiter returns a limiter backed by rdb. A disabled limiter admits everything.
func NewAttemptLimiter(rdb *redis.Client, enabled bool) *AttemptLimiter {
	return &AttemptLimiter{rdb: rdb, enabled: enabled}
}

// Allow records one attempt by caller at action. When the attempt is over
// limit it also returns how long until the window resets.
func (l *AttemptLimiter) Allow(ctx context.Context, action, caller string, limit int, window time.Duration) (bool, time.Duration, error) {
	if !l.enabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return false, 0, errNoStore
	}

	key := "attempts:" + action + ":" + caller
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("attempts").Inc()
		return false, 0, err
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			observability.RedisErrors.WithLabelValues("attempts").Inc()
		}
	}
	if n <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return false, ttl, nil
}

// Limit guards a route with Allow. Callers are keyed by principal id when
// one is known and by remote address otherwise.
func (l *AttemptLimiter) Limit(action string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if p := PrincipalFrom(c); p != nil {
			caller = "user:" + p.ID
		}

		ok, retry, err := l.Allow(c.UserContext(), action, caller, limit, window)
		switch {
		case err != nil && l.FailClosed:
			Logger.WarnContext(c.UserContext(), "attempt limiter unavailable",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "Service temporarily unavailable.",
			})
		case err != nil:
			return c.Next()
		case !ok:
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int((retry+time.Second-1)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many attempts, please try again later.",
			})
		}
		return c.Next()
	}
}
