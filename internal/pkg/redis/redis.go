package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/agentforge-ai/agentforge/internal/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Client struct {
	*redis.Client
}

func NewClient(cfg *config.RedisConfig) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr()).Msg("Redis connected successfully")

	return &Client{client}, nil
}

// Rate limiting
func (c *Client) RateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	pipe := c.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, limit - count, nil
}

// Cancellation flags. The engine checks the flag between node attempts; a
// set flag terminates the run with EXECUTION_CANCELLED.

func cancelKey(executionID string) string {
	return "execution:" + executionID + ":cancel"
}

func (c *Client) RequestCancel(ctx context.Context, executionID string, ttl time.Duration) error {
	return c.Set(ctx, cancelKey(executionID), "1", ttl).Err()
}

func (c *Client) CancelRequested(ctx context.Context, executionID string) (bool, error) {
	n, err := c.Exists(ctx, cancelKey(executionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) ClearCancel(ctx context.Context, executionID string) error {
	return c.Del(ctx, cancelKey(executionID)).Err()
}
