package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"spaceofthoughts/internal/cache"
	"spaceofthoughts/internal/config"
	"spaceofthoughts/internal/database"
	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis, then seeds the built-in
// roles and system account. Redis is optional; the returned client is nil
// when it cannot be reached.
func InitRuntime(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.Connect(ctx, cfg.RedisURL)

	if err := SeedBuiltIns(ctx, db, cfg); err != nil {
		return nil, nil, err
	}
	return db, rdb, nil
}

// SeedBuiltIns stores the roles and the system account, then demo content
// when SEED_POSTS is set and the database has no posts yet. It is safe to
// run on every start.
func SeedBuiltIns(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	s := seed.NewSeeder(db)
	if err := s.Roles(ctx); err != nil {
		return err
	}
	if _, err := s.Admin(ctx, cfg.AdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap system account: %w", err)
	}

	if cfg.SeedPosts <= 0 {
		return nil
	}
	var existing int64
	if err := db.WithContext(ctx).Model(&models.BlogPost{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	if existing > 0 {
		middleware.Logger.InfoContext(ctx, "skipping demo content, posts already exist", slog.Int64("posts", existing))
		return nil
	}
	if _, err := s.Content(ctx, seed.Options{NumPosts: cfg.SeedPosts}); err != nil {
		return fmt.Errorf("failed to seed demo content: %w", err)
	}
	return nil
}
