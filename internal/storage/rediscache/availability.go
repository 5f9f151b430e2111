package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix  = "stock:"
	availabilityTTL = 5 * time.Minute
)

// AvailabilityCache mirrors per-record availability into Redis. Entries
// expire so a missed invalidation heals itself; the Postgres ledger stays
// authoritative.
type AvailabilityCache struct {
	client *redis.Client
}

func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

func (c *AvailabilityCache) SetAvailable(ctx context.Context, sku, warehouse string, available int) error {
	return c.client.Set(ctx, stockKey(sku, warehouse), available, availabilityTTL).Err()
}

func (c *AvailabilityCache) GetAvailable(ctx context.Context, sku, warehouse string) (int, bool, error) {
	val, err := c.client.Get(ctx, stockKey(sku, warehouse)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

func stockKey(sku, warehouse string) string {
	return fmt.Sprintf("%s%s:%s", stockKeyPrefix, sku, warehouse)
}
