// Package cache keeps short-lived booked-cover tallies in Redis so busy
// availability pages do not hit PostgreSQL on every date change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "trattoria:covers:"

// NewRedisClient parses a redis:// URL, or a bare host:port address.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		if strings.Contains(url, "://") {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts = &redis.Options{Addr: url}
	}
	return redis.NewClient(opts), nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

type CoversCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCoversCache(client *redis.Client, ttl time.Duration) *CoversCache {
	return &CoversCache{client: client, ttl: ttl}
}

// Get returns the cached covers for date and whether they were present.
func (c *CoversCache) Get(ctx context.Context, date string) (map[string]int, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+date).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get covers: %w", err)
	}
	covers := map[string]int{}
	if err := json.Unmarshal(raw, &covers); err != nil {
		return nil, false, fmt.Errorf("decode cached covers: %w", err)
	}
	return covers, true, nil
}

func (c *CoversCache) Set(ctx context.Context, date string, covers map[string]int) error {
	raw, err := json.Marshal(covers)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, keyPrefix+date, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set covers: %w", err)
	}
	return nil
}

func (c *CoversCache) Invalidate(ctx context.Context, date string) error {
	if err := c.client.Del(ctx, keyPrefix+date).Err(); err != nil {
		return fmt.Errorf("redis del covers: %w", err)
	}
	return nil
}
