package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/optix/scalp-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache over the per-strategy and per-instrument list queries. Appends go
// to the primary store and invalidate the affected cache keys; reads check
// Redis first then fall back to the primary.
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

func (s *CachedStore) Append(ctx context.Context, rec *model.TradeRecord) error {
	if err := s.primary.Append(ctx, rec); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, strategyKey(rec.StrategyTag), instrumentKey(rec.Instrument))
	return nil
}

func (s *CachedStore) ListByStrategy(ctx context.Context, tag string) ([]model.TradeRecord, error) {
	return s.listCached(ctx, strategyKey(tag), func() ([]model.TradeRecord, error) {
		return s.primary.ListByStrategy(ctx, tag)
	})
}

func (s *CachedStore) ListByInstrument(ctx context.Context, instrument string) ([]model.TradeRecord, error) {
	return s.listCached(ctx, instrumentKey(instrument), func() ([]model.TradeRecord, error) {
		return s.primary.ListByInstrument(ctx, instrument)
	})
}

// ListAll is not cached: it is only used by operator queries, and keeping
// one more key consistent across appends is not worth it.
func (s *CachedStore) ListAll(ctx context.Context) ([]model.TradeRecord, error) {
	return s.primary.ListAll(ctx)
}

func (s *CachedStore) listCached(ctx context.Context, key string, load func() ([]model.TradeRecord, error)) ([]model.TradeRecord, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var records []model.TradeRecord
		if json.Unmarshal(data, &records) == nil {
			return records, nil
		}
	}

	// Cache miss: read from primary.
	records, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return records, nil
}

func strategyKey(tag string) string         { return fmt.Sprintf("trades:strategy:%s", tag) }
func instrumentKey(instrument string) string { return fmt.Sprintf("trades:instrument:%s", instrument) }
