package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestPreviewKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a0e-0000-4000-8000-000000000001")
	require.Equal(t, "chat:6f1c2a0e-0000-4000-8000-000000000001:preview", previewKey(id))
}

func TestRedisPreviewCache_UnreachableServerIsAMiss(t *testing.T) {
	req := require.New(t)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewRedisPreviewCache(client, slog.New(slog.DiscardHandler))
	chatID := uuid.New()

	c.Set(context.Background(), chatID, "hello")
	c.Invalidate(context.Background(), chatID)
	_, ok := c.Get(context.Background(), chatID)

	req.False(ok)
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url")
	require.ErrorContains(t, err, "parsing redis url")
}
