package history

import (
	"context"
	"sync"

	"github.com/optix/scalp-engine/internal/model"
)

// MemoryStore implements Store with an in-memory slice. Used for testing
// and for runs without DATABASE_URL (records do not survive restarts).
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.TradeRecord
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, rec *model.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *rec)
	return nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]model.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TradeRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) ListByStrategy(_ context.Context, tag string) ([]model.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TradeRecord
	for _, r := range s.records {
		if r.StrategyTag == tag {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByInstrument(_ context.Context, instrument string) ([]model.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TradeRecord
	for _, r := range s.records {
		if r.Instrument == instrument {
			out = append(out, r)
		}
	}
	return out, nil
}
