package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlanPriceEntry represents a cached view of a plan's latest known price.
// It backs the product listing endpoints so catalog reads don't fan out to
// the snapshot table on every request.
type PlanPriceEntry struct {
	PlanID     string          `json:"planId"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	ObservedAt time.Time       `json:"observedAt"`
	CachedAt   time.Time       `json:"cachedAt"`
}

// PriceCache provides read-through caching for plan prices.
type PriceCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewPriceCache creates a new PriceCache. Entries expire after ttl; the
// pipeline also overwrites them eagerly on every successful extraction, so
// the TTL only bounds staleness when the pipeline is down.
func NewPriceCache(redis *RedisClient, ttl time.Duration) *PriceCache {
	return &PriceCache{redis: redis, ttl: ttl}
}

func (c *PriceCache) key(planID string) string {
	return fmt.Sprintf("price:plan:%s", planID)
}

// Set stores the latest price for a plan.
func (c *PriceCache) Set(ctx context.Context, entry *PlanPriceEntry) error {
	entry.CachedAt = time.Now().UTC()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal price entry: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(entry.PlanID), string(jsonData), c.ttl); err != nil {
		return fmt.Errorf("failed to set price entry: %w", err)
	}
	return nil
}

// Get retrieves the cached price for a plan. A cache miss returns the
// underlying redis error; callers fall back to the database.
func (c *PriceCache) Get(ctx context.Context, planID string) (*PlanPriceEntry, error) {
	jsonData, err := c.redis.Get(ctx, c.key(planID))
	if err != nil {
		return nil, err
	}

	var entry PlanPriceEntry
	if err := json.Unmarshal([]byte(jsonData), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price entry: %w", err)
	}
	return &entry, nil
}

// Invalidate removes cached prices for the given plans.
func (c *PriceCache) Invalidate(ctx context.Context, planIDs ...string) error {
	if len(planIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(planIDs))
	for _, id := range planIDs {
		keys = append(keys, c.key(id))
	}
	return c.redis.Delete(ctx, keys...)
}
