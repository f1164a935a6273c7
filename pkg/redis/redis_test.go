package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/freightcast/backend/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	cfg := APIRateLimit("10.0.0.1", 60)
	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed, "requests pass when redis is disabled")
	assert.Equal(t, 60, remaining)
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(disabledClient(t), "test")

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", TTLShort))

	n, err := cache.Invalidate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	calls := 0
	var got []int
	err = cache.GetOrSet(ctx, "key", &got, TTLShort, func() (interface{}, error) {
		calls++
		return []int{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 1, calls)
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"HistoricalKey", HistoricalKey("SEA-LAX", 30), "historical:SEA-LAX:30"},
		{"RoutesKey", RoutesKey(), "routes:metrics"},
		{"CarrierKey", CarrierKey("Maersk"), "carrier:Maersk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestRateLimiter_Integration(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" || testing.Short() {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}

	client, err := New(context.Background(), &config.Config{Redis: config.RedisConfig{
		Enabled: true, Host: host, Port: "6379",
	}})
	require.NoError(t, err)
	defer client.Close()

	limiter := NewRateLimiter(client, "freightcast-test")
	cfg := RateLimitConfig{Key: "it-" + time.Now().Format("150405.000"), Limit: 2, Window: time.Second}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, remaining, err := limiter.Allow(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
}
