package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real Redis, e.g. TEST_REDIS_URL=redis://localhost:6379/15.
func TestCoversCache_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	client, err := NewRedisClient(url)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	c := NewCoversCache(client, time.Minute)
	date := "2099-01-01"
	require.NoError(t, c.Invalidate(ctx, date))

	_, ok, err := c.Get(ctx, date)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, date, map[string]int{"19:00": 6}))
	covers, ok, err := c.Get(ctx, date)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 6, covers["19:00"])

	require.NoError(t, c.Invalidate(ctx, date))
	_, ok, err = c.Get(ctx, date)
	require.NoError(t, err)
	assert.False(t, ok)
}
