package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache keeps successful quotes in Redis for a short time. Misses and
// Redis failures fall through to the wrapped provider; failed lookups are
// never stored.
type Cache struct {
	next Provider
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCache(next Provider, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}

func (c *Cache) Lookup(ctx context.Context, symbol string) (Quote, bool) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return Quote{}, false
	}
	if c.rdb == nil || c.ttl <= 0 {
		return c.next.Lookup(ctx, symbol)
	}

	cached, err := c.rdb.Get(ctx, cacheKey(symbol)).Bytes()
	if err == nil {
		var q Quote
		if err := json.Unmarshal(cached, &q); err == nil {
			return q, true
		}
	} else if err != redis.Nil {
		log.Printf("quote cache read %s: %v", symbol, err)
	}

	q, ok := c.next.Lookup(ctx, symbol)
	if !ok {
		return Quote{}, false
	}

	data, _ := json.Marshal(q)
	if err := c.rdb.Set(ctx, cacheKey(symbol), data, c.ttl).Err(); err != nil {
		log.Printf("quote cache write %s: %v", symbol, err)
	}
	return q, true
}
