package state

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

type cellKey struct {
	Instrument string
	Leg        model.Leg
}

type cell struct {
	price decimal.Decimal
	at    time.Time
}

// PriceSnapshot holds the latest known price per (instrument, leg).
// The feed manager is the only writer; each write replaces one cell
// wholesale, so readers never observe a torn price. A cell is absent
// until the first tick for its leg arrives.
type PriceSnapshot struct {
	mu    sync.RWMutex
	cells map[cellKey]cell
}

// NewPriceSnapshot creates an empty snapshot.
func NewPriceSnapshot() *PriceSnapshot {
	return &PriceSnapshot{cells: make(map[cellKey]cell)}
}

// Set records a tick for one leg. Non-positive prices are dropped: a stored
// price is always a finite positive number.
func (s *PriceSnapshot) Set(instrument string, leg model.Leg, price decimal.Decimal, at time.Time) {
	if !price.IsPositive() {
		return
	}
	s.mu.Lock()
	s.cells[cellKey{instrument, leg}] = cell{price: price, at: at}
	s.mu.Unlock()
}

// Price returns the latest price and tick time for one leg.
// ok is false until the first tick arrives.
func (s *PriceSnapshot) Price(instrument string, leg model.Leg) (decimal.Decimal, time.Time, bool) {
	s.mu.RLock()
	c, ok := s.cells[cellKey{instrument, leg}]
	s.mu.RUnlock()
	return c.price, c.at, ok
}

// SidePrice returns the option-leg price for a contract side.
func (s *PriceSnapshot) SidePrice(instrument string, side model.ContractSide) (decimal.Decimal, time.Time, bool) {
	leg := model.LegCall
	if side == model.SidePut {
		leg = model.LegPut
	}
	return s.Price(instrument, leg)
}
