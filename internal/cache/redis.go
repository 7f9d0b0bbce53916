// Package cache holds the Redis client shared by the post cache, the token
// blacklist and the content event bus.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/observability"

	"github.com/redis/go-redis/v9"
)

const slowCommand = 50 * time.Millisecond

var client *redis.Client

// commandHook counts failed commands per name and logs slow ones at debug.
type commandHook struct{}

func (commandHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (commandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		observe(ctx, cmd.Name(), start, err)
		return err
	}
}

func (commandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		observe(ctx, "pipeline", start, err)
		return err
	}
}

func observe(ctx context.Context, name string, start time.Time, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrors.WithLabelValues(name).Inc()
	}
	if d := time.Since(start); d > slowCommand {
		middleware.Logger.DebugContext(ctx, "slow redis command", slog.String("command", name), slog.Duration("took", d))
	}
}

// ParseAddr accepts host:port or a redis:// / rediss:// URL.
func ParseAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// Connect dials Redis and installs the client for the package helpers. It
// returns nil when Redis is unreachable; callers then run without cache,
// revocation or live events.
func Connect(ctx context.Context, addr string) *redis.Client {
	opts, err := ParseAddr(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, continuing without redis",
			slog.String("addr", addr), slog.String("error", err.Error()))
		SetClient(nil)
		return nil
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(commandHook{})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unavailable, continuing without it", slog.String("error", err.Error()))
		_ = rdb.Close()
		SetClient(nil)
		return nil
	}

	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	SetClient(rdb)
	return rdb
}

// SetClient replaces the client used by GetJSON, SetJSON, Aside and Invalidate.
func SetClient(rdb *redis.Client) {
	client = rdb
}
