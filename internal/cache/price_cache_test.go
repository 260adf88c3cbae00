package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planwatch/planwatch_api/internal/config"
)

func testPriceCache(t *testing.T) (*PriceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(&config.RedisConfig{
		Host: mr.Host(),
		Port: mr.Port(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewPriceCache(client, time.Hour), mr
}

func TestPriceCacheRoundTrip(t *testing.T) {
	c, _ := testPriceCache(t)
	ctx := context.Background()

	observed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	entry := &PlanPriceEntry{
		PlanID:     "plan-1",
		Price:      decimal.RequireFromString("8.75"),
		Currency:   "USD",
		ObservedAt: observed,
	}
	require.NoError(t, c.Set(ctx, entry))

	got, err := c.Get(ctx, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "plan-1", got.PlanID)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("8.75")))
	assert.Equal(t, "USD", got.Currency)
	assert.True(t, got.ObservedAt.Equal(observed))
	assert.False(t, got.CachedAt.IsZero())
}

func TestPriceCacheMiss(t *testing.T) {
	c, _ := testPriceCache(t)

	_, err := c.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestPriceCacheInvalidate(t *testing.T) {
	c, _ := testPriceCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &PlanPriceEntry{PlanID: "plan-1", Price: decimal.NewFromInt(10), Currency: "USD"}))
	require.NoError(t, c.Invalidate(ctx, "plan-1"))

	_, err := c.Get(ctx, "plan-1")
	assert.Error(t, err)
}

func TestPriceCacheEntryExpires(t *testing.T) {
	c, mr := testPriceCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &PlanPriceEntry{PlanID: "plan-1", Price: decimal.NewFromInt(10), Currency: "USD"}))

	mr.FastForward(2 * time.Hour)

	_, err := c.Get(ctx, "plan-1")
	assert.Error(t, err)
}
