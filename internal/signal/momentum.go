// Package signal derives directional entry signals from premium momentum.
//
// The provider keeps a short rolling window of option premium prints per
// (instrument, side) and scores the net percentage move across the window.
// A rising premium is a long signal for that side; falling or flat premium
// yields no signal.
package signal

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/engine"
	"github.com/optix/scalp-engine/internal/model"
)

const (
	// DefaultLookback is how many premium prints the score is built from.
	DefaultLookback = 12

	// minSamples below which no signal is produced.
	minSamples = 4

	// referenceMovePct is the premium move mapped to strength 1.0.
	referenceMovePct = 0.5
)

type print struct {
	price decimal.Decimal
	at    time.Time
}

type premiumWindow struct {
	prints []print
	cap    int
}

func (w *premiumWindow) add(p print) {
	if len(w.prints) == w.cap {
		copy(w.prints, w.prints[1:])
		w.prints = w.prints[:w.cap-1]
	}
	w.prints = append(w.prints, p)
}

type key struct {
	instrument string
	side       model.ContractSide
}

// MomentumProvider implements engine.SignalProvider over observed premiums.
type MomentumProvider struct {
	mu       sync.RWMutex
	windows  map[key]*premiumWindow
	lookback int
	maxAge   time.Duration
	now      func() time.Time
}

// NewMomentum creates a provider. maxAge bounds how old the window's first
// print may be before the signal is considered gone.
func NewMomentum(lookback int, maxAge time.Duration) *MomentumProvider {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &MomentumProvider{
		windows:  make(map[key]*premiumWindow),
		lookback: lookback,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Observe records a premium print for the pair. Non-positive prices are
// ignored.
func (p *MomentumProvider) Observe(instrument string, side model.ContractSide, price decimal.Decimal, at time.Time) {
	if !price.IsPositive() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{instrument: instrument, side: side}
	w, ok := p.windows[k]
	if !ok {
		w = &premiumWindow{cap: p.lookback}
		p.windows[k] = w
	}
	w.add(print{price: price, at: at})
}

// Signal scores the pair's recent premium momentum. Strength is the net
// percentage move across the window divided by the reference move, so a
// sustained rally scores well above the entry threshold while chop scores
// near zero. Confidence reflects how full the window is.
func (p *MomentumProvider) Signal(instrument string, side model.ContractSide) (engine.Signal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	w, ok := p.windows[key{instrument: instrument, side: side}]
	if !ok || len(w.prints) < minSamples {
		return engine.Signal{}, false
	}

	first := w.prints[0]
	last := w.prints[len(w.prints)-1]
	if p.maxAge > 0 && p.now().Sub(last.at) > p.maxAge {
		return engine.Signal{}, false
	}
	if !first.price.IsPositive() {
		return engine.Signal{}, false
	}

	movePct, _ := last.price.Sub(first.price).
		Div(first.price).
		Mul(decimal.NewFromInt(100)).
		Float64()
	if movePct <= 0 {
		return engine.Signal{}, false
	}

	strength := decimal.NewFromFloat(movePct / referenceMovePct).Round(4)
	confidence := decimal.NewFromInt(int64(len(w.prints))).
		Div(decimal.NewFromInt(int64(w.cap))).
		Round(2)

	return engine.Signal{Strength: strength, Confidence: confidence}, true
}
