package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/basesim/trade-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store first and then refresh the cache;
// reads check Redis and fall back to the primary. A cache failure is never
// promoted to a store failure.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) Load(ctx context.Context, walletAddress string) (*model.Ledger, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, ledgerKey(walletAddress)).Bytes()
	if err == nil {
		var l model.Ledger
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	// Cache miss: read from primary.
	l, err := s.primary.Load(ctx, walletAddress)
	if err != nil {
		return nil, err
	}

	s.cacheLedger(ctx, walletAddress, l)
	return l, nil
}

func (s *CachedStore) Save(ctx context.Context, walletAddress string, ledger *model.Ledger) error {
	if err := s.primary.Save(ctx, walletAddress, ledger); err != nil {
		return err
	}
	s.cacheLedger(ctx, walletAddress, ledger)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, walletAddress string) error {
	if err := s.primary.Delete(ctx, walletAddress); err != nil {
		return err
	}
	s.rdb.Del(ctx, ledgerKey(walletAddress))
	return nil
}

func (s *CachedStore) cacheLedger(ctx context.Context, walletAddress string, l *model.Ledger) {
	if data, err := json.Marshal(l); err == nil {
		s.rdb.Set(ctx, ledgerKey(walletAddress), data, s.ttl)
	}
}

func ledgerKey(walletAddress string) string { return fmt.Sprintf("ledger:%s", walletAddress) }
