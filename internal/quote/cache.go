package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/basesim/trade-engine/internal/model"
)

// CachedProvider wraps a primary Provider with a Redis read-through cache.
// Reads check Redis first and fall back to the primary; a fresh quote is
// cached with a short TTL so bursts of trades against the same token do not
// hammer the upstream API. Cache failures degrade to the primary — they
// never surface as ErrUnavailable on their own.
type CachedProvider struct {
	primary Provider
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedProvider creates a cached wrapper around a primary provider.
func NewCachedProvider(primary Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (c *CachedProvider) GetQuote(ctx context.Context, contractID string) (*model.Quote, error) {
	// Try cache.
	data, err := c.rdb.Get(ctx, quoteKey(contractID)).Bytes()
	if err == nil {
		var q model.Quote
		if json.Unmarshal(data, &q) == nil && q.PriceUSD.IsPositive() {
			return &q, nil
		}
	}

	// Cache miss: read from primary.
	q, err := c.primary.GetQuote(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(q); err == nil {
		c.rdb.Set(ctx, quoteKey(contractID), data, c.ttl)
	}
	return q, nil
}

func quoteKey(contractID string) string { return fmt.Sprintf("quote:%s", contractID) }
