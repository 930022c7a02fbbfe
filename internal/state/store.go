// Package state is the process-wide trading state store: per-(instrument,
// side) trade slots, daily counters, and the in-memory closed-trade
// history.
//
// Every slot carries its own mutex, so operations on different keys never
// block each other; two callers racing on the same key serialize, with the
// loser observing the updated state and failing cleanly. Open, Close, and
// UpdateStop are the only mutations and each applies atomically under the
// slot lock — no partial writes are ever visible.
package state

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
	"github.com/optix/scalp-engine/internal/risk"
)

var (
	// ErrAlreadyActive is returned when Open hits a slot that already
	// holds an open trade. The second entry is rejected, not queued.
	ErrAlreadyActive = errors.New("state: trade already active for key")

	// ErrNotActive is returned when Close or UpdateStop hits a flat slot.
	ErrNotActive = errors.New("state: no active trade for key")

	// ErrStopWidens is returned when an UpdateStop call would move the
	// stop against the trade, widening risk.
	ErrStopWidens = errors.New("state: stop update would widen risk")

	// ErrUnknownKey is returned for (instrument, side) pairs outside the
	// catalog universe the store was built with.
	ErrUnknownKey = errors.New("state: unknown instrument/side key")
)

// Key identifies one trade slot.
type Key struct {
	Instrument string
	Side       model.ContractSide
}

// OpenParams carries every field the entry operation sets in one atomic
// step.
type OpenParams struct {
	EntryPrice        decimal.Decimal
	StopLoss          decimal.Decimal
	Target            decimal.Decimal
	Quantity          int64
	UnderlyingAtEntry decimal.Decimal
	StrategyTag       string
	EntryTime         time.Time
}

type slot struct {
	mu sync.Mutex
	st model.TradeState
}

// Store holds all trade slots, the day's counters, and closed-trade
// history. Create one per process with New.
type Store struct {
	slots   map[Key]*slot
	limiter *risk.Limiter

	tradesToday atomic.Int64

	countersMu    sync.Mutex
	day           string
	perInstrument map[string]int64
	perStrategy   map[string]int64
	realized      decimal.Decimal

	histMu  sync.Mutex
	records []model.TradeRecord
}

// New creates a store with one flat slot per (instrument, side) pair.
// The limiter supplies the day-level quota gates checked inside Open;
// pass nil to disable quota enforcement (tests).
func New(instruments []model.Instrument, limiter *risk.Limiter) *Store {
	s := &Store{
		slots:         make(map[Key]*slot, len(instruments)*2),
		limiter:       limiter,
		perInstrument: make(map[string]int64),
		perStrategy:   make(map[string]int64),
	}
	for _, inst := range instruments {
		for _, side := range model.Sides {
			s.slots[Key{inst.Name, side}] = &slot{}
		}
	}
	return s
}

// Open transitions a flat slot to open, setting all trade fields in one
// atomic step. Fails with ErrAlreadyActive if the slot holds an open trade,
// or with a risk sentinel error if the day's or the instrument's quota is
// exhausted. On success the day's counters are incremented.
func (s *Store) Open(instrument string, side model.ContractSide, p OpenParams) error {
	sl, ok := s.slots[Key{instrument, side}]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownKey, instrument, side)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.st.IsActive {
		return fmt.Errorf("%w: %s/%s", ErrAlreadyActive, instrument, side)
	}

	// Quota check and increment under one lock so concurrent entries on
	// different keys cannot overshoot the daily maximum.
	s.countersMu.Lock()
	if s.limiter != nil {
		if err := s.limiter.CheckEntry(instrument, s.countersLocked()); err != nil {
			s.countersMu.Unlock()
			return err
		}
	}
	s.tradesToday.Add(1)
	s.perInstrument[instrument]++
	s.perStrategy[p.StrategyTag]++
	s.countersMu.Unlock()

	sl.st = model.TradeState{
		IsActive:          true,
		EntryPrice:        p.EntryPrice,
		EntryTime:         p.EntryTime,
		StopLoss:          p.StopLoss,
		InitialStopLoss:   p.StopLoss,
		Target:            p.Target,
		UnderlyingAtEntry: p.UnderlyingAtEntry,
		Quantity:          p.Quantity,
		StrategyTag:       p.StrategyTag,
	}
	return nil
}

// Close transitions an open slot back to flat and appends exactly one
// immutable TradeRecord to history. Fails with ErrNotActive on a flat slot.
func (s *Store) Close(instrument string, side model.ContractSide, exitPrice decimal.Decimal, reason string, at time.Time) (*model.TradeRecord, error) {
	sl, ok := s.slots[Key{instrument, side}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownKey, instrument, side)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.st.IsActive {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotActive, instrument, side)
	}

	st := sl.st
	pnl := exitPrice.Sub(st.EntryPrice).Mul(decimal.NewFromInt(st.Quantity))
	pnlPct := decimal.Zero
	if st.EntryPrice.IsPositive() {
		pnlPct = exitPrice.Sub(st.EntryPrice).Div(st.EntryPrice).Mul(decimal.NewFromInt(100)).Round(4)
	}

	rec := model.TradeRecord{
		ID:          uuid.New().String(),
		Instrument:  instrument,
		Side:        side,
		StrategyTag: st.StrategyTag,
		EntryPrice:  st.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    st.Quantity,
		PnL:         pnl,
		PnLPct:      pnlPct,
		EntryTime:   st.EntryTime,
		ExitTime:    at,
		ExitReason:  reason,
	}

	s.histMu.Lock()
	s.records = append(s.records, rec)
	s.histMu.Unlock()

	s.countersMu.Lock()
	s.realized = s.realized.Add(pnl)
	s.countersMu.Unlock()

	sl.st = model.TradeState{}
	return &rec, nil
}

// UpdateStop tightens the protective stop of an open trade and marks
// trailing as activated. Stops only move up (the trade's favorable
// direction for long option positions); a lower stop is rejected with
// ErrStopWidens and an equal stop is a no-op.
func (s *Store) UpdateStop(instrument string, side model.ContractSide, newStop decimal.Decimal) error {
	sl, ok := s.slots[Key{instrument, side}]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownKey, instrument, side)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.st.IsActive {
		return fmt.Errorf("%w: %s/%s", ErrNotActive, instrument, side)
	}
	if newStop.LessThan(sl.st.StopLoss) {
		return fmt.Errorf("%w: %s < %s", ErrStopWidens, newStop, sl.st.StopLoss)
	}

	sl.st.StopLoss = newStop
	sl.st.TrailingActivated = true
	return nil
}

// State returns a copy of the slot's current trade state.
func (s *Store) State(instrument string, side model.ContractSide) (model.TradeState, bool) {
	sl, ok := s.slots[Key{instrument, side}]
	if !ok {
		return model.TradeState{}, false
	}
	sl.mu.Lock()
	st := sl.st
	sl.mu.Unlock()
	return st, true
}

// OpenStates returns a copy of every currently open trade keyed by slot.
func (s *Store) OpenStates() map[Key]model.TradeState {
	out := make(map[Key]model.TradeState)
	for k, sl := range s.slots {
		sl.mu.Lock()
		if sl.st.IsActive {
			out[k] = sl.st
		}
		sl.mu.Unlock()
	}
	return out
}

// Counters returns a point-in-time copy of the day's counters.
func (s *Store) Counters() model.DailyCounters {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	return s.countersLocked()
}

func (s *Store) countersLocked() model.DailyCounters {
	perInst := make(map[string]int64, len(s.perInstrument))
	for k, v := range s.perInstrument {
		perInst[k] = v
	}
	perStrat := make(map[string]int64, len(s.perStrategy))
	for k, v := range s.perStrategy {
		perStrat[k] = v
	}
	return model.DailyCounters{
		Day:           s.day,
		TradesToday:   s.tradesToday.Load(),
		PerInstrument: perInst,
		PerStrategy:   perStrat,
		RealizedPnL:   s.realized,
	}
}

// Records returns a copy of the closed-trade history, ordered by close
// time.
func (s *Store) Records() []model.TradeRecord {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	out := make([]model.TradeRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Rollover resets the day's counters when the market date changes.
// History is kept; only counters reset. Returns true if a reset happened.
func (s *Store) Rollover(day string) bool {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()

	if s.day == day {
		return false
	}
	first := s.day == ""
	s.day = day
	s.tradesToday.Store(0)
	s.perInstrument = make(map[string]int64)
	s.perStrategy = make(map[string]int64)
	s.realized = decimal.Zero
	return !first
}
