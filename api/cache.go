/*
cache.go - Redis read-through cache for the product catalog

PURPOSE:
  The product list is the hottest read in a point-of-sale deployment:
  every register polls it. This cache keeps the full catalog in Redis so
  those reads skip SQLite entirely, and is invalidated on every write
  that can change a product row - catalog updates and committed
  purchases alike.

CORRECTNESS:
  The cache is an optimization, never an authority. The commit engine
  reads stock through the store inside its transaction, so a stale cache
  can never oversell. Cache failures degrade to database reads; they are
  logged and otherwise ignored.

DISABLED MODE:
  A nil *ProductCache (or one built from a nil client) is valid and
  turns every operation into a no-op. Tests and single-register setups
  run without Redis at all.

SEE ALSO:
  - handlers.go: the only consumer
*/
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	productListKey = "catalog:products"
	productListTTL = 5 * time.Minute
)

// ProductCache caches the serialized product list in Redis.
type ProductCache struct {
	client *redis.Client
}

// NewProductCache wraps a Redis client. A nil client disables caching.
func NewProductCache(client *redis.Client) *ProductCache {
	if client == nil {
		return nil
	}
	return &ProductCache{client: client}
}

// Get returns the cached product list, or ok=false on miss, disabled
// cache, or any Redis failure.
func (c *ProductCache) Get(ctx context.Context) ([]ProductDTO, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, productListKey).Bytes()
	if err != nil {
		return nil, false
	}
	var products []ProductDTO
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false
	}
	return products, true
}

// Set stores the product list with a TTL as a backstop against missed
// invalidations.
func (c *ProductCache) Set(ctx context.Context, products []ProductDTO) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	c.client.Set(ctx, productListKey, raw, productListTTL)
}

// Invalidate drops the cached list. Called after any write that touches
// product rows.
func (c *ProductCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	c.client.Del(ctx, productListKey)
}
