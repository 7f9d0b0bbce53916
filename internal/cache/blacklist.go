package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// TokenBlacklist records revoked token ids until they would have expired anyway.
type TokenBlacklist struct {
	rdb *redis.Client
}

// NewTokenBlacklist returns a blacklist backed by rdb. A nil client revokes nothing.
func NewTokenBlacklist(rdb *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rdb: rdb}
}

// Revoke blacklists tokenID until expiresAt.
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if b == nil || b.rdb == nil || tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistPrefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether tokenID has been blacklisted.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if b == nil || b.rdb == nil {
		return false, nil
	}
	n, err := b.rdb.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
