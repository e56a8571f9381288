// Package cache holds the optional Redis cache of chat list previews.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	previewKeyPrefix = "chat:"
	previewKeySuffix = ":preview"
	previewTTL       = 10 * time.Minute
	opTimeout        = 2 * time.Second
)

// Connect parses url, tunes the pool and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// RedisPreviewCache stores the last-message preview per chat. Failures are
// logged and treated as misses; the store stays the source of truth.
type RedisPreviewCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisPreviewCache(client *redis.Client, log *slog.Logger) *RedisPreviewCache {
	return &RedisPreviewCache{client: client, ttl: previewTTL, log: log}
}

func previewKey(chatID uuid.UUID) string {
	return previewKeyPrefix + chatID.String() + previewKeySuffix
}

func (c *RedisPreviewCache) Get(ctx context.Context, chatID uuid.UUID) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, previewKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.log.Warn("preview cache get failed", "chat_id", chatID, "error", err)
		return "", false
	}
	return val, true
}

func (c *RedisPreviewCache) Set(ctx context.Context, chatID uuid.UUID, preview string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, previewKey(chatID), preview, c.ttl).Err(); err != nil {
		c.log.Warn("preview cache set failed", "chat_id", chatID, "error", err)
	}
}

func (c *RedisPreviewCache) Invalidate(ctx context.Context, chatID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, previewKey(chatID)).Err(); err != nil {
		c.log.Warn("preview cache invalidate failed", "chat_id", chatID, "error", err)
	}
}
