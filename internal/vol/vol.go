// Package vol maintains per-instrument rolling volatility windows.
//
// Volatility is the standard deviation of percentage price changes over a
// bounded window of recent ticks. The window also keeps a bounded history
// of volatility samples so callers can compare the current reading against
// a rolling baseline.
//
// Prices arrive as shopspring/decimal; the standard-deviation math runs in
// float64 internally, with results immediately converted back to decimal.
package vol

import (
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultCapacity is the number of price samples retained per window.
const DefaultCapacity = 30

// minSamples is the number of percentage changes required before the
// window reports a measured volatility instead of the neutral default.
const minSamples = 5

// defaultVolatility is reported while the window is still warming up.
var defaultVolatility = decimal.NewFromInt(1)

// Window is a bounded sliding window of prices for one instrument.
// Safe for one writer and many readers.
type Window struct {
	mu      sync.Mutex
	cap     int
	changes []float64 // percentage changes between consecutive prices
	last    decimal.Decimal
	hasLast bool
	history []float64 // recent volatility samples for the rolling baseline
}

// New creates a window holding up to capacity percentage-change samples.
// capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{cap: capacity}
}

// Observe records a new price. The first observation only seeds the window;
// each subsequent one appends a percentage change, evicting the oldest
// sample once capacity is exceeded.
func (w *Window) Observe(price decimal.Decimal) {
	if !price.IsPositive() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.hasLast {
		change, _ := price.Sub(w.last).Div(w.last).Mul(decimal.NewFromInt(100)).Float64()
		w.changes = append(w.changes, change)
		if len(w.changes) > w.cap {
			w.changes = w.changes[1:]
		}
		if len(w.changes) >= minSamples {
			w.history = append(w.history, stddev(w.changes))
			if len(w.history) > w.cap {
				w.history = w.history[1:]
			}
		}
	}
	w.last = price
	w.hasLast = true
}

// Volatility returns the standard deviation of the windowed percentage
// changes, or the neutral default while fewer than minSamples changes
// have been observed.
func (w *Window) Volatility() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.changes) < minSamples {
		return defaultVolatility
	}
	return decimal.NewFromFloat(stddev(w.changes)).Round(6)
}

// Baseline returns the mean of the recent volatility samples, or the
// neutral default when no samples exist yet.
func (w *Window) Baseline() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.history) == 0 {
		return defaultVolatility
	}
	return decimal.NewFromFloat(mean(w.history)).Round(6)
}

// Relative returns current volatility divided by the rolling baseline.
// A value above 1 means the market is more volatile than its recent norm.
func (w *Window) Relative() decimal.Decimal {
	base := w.Baseline()
	if base.IsZero() {
		return defaultVolatility
	}
	return w.Volatility().Div(base).Round(6)
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	m := mean(xs)
	variance := 0.0
	for _, x := range xs {
		variance += (x - m) * (x - m)
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// Windows is a fixed set of per-instrument windows created at startup.
// Implements the strategy engine's volatility provider contract.
type Windows struct {
	byName map[string]*Window
}

// NewWindows creates one window per instrument name.
func NewWindows(names []string, capacity int) *Windows {
	byName := make(map[string]*Window, len(names))
	for _, name := range names {
		byName[name] = New(capacity)
	}
	return &Windows{byName: byName}
}

// Observe records a price for the named instrument. Unknown names are
// ignored.
func (ws *Windows) Observe(name string, price decimal.Decimal) {
	if w, ok := ws.byName[name]; ok {
		w.Observe(price)
	}
}

// CurrentVolatility returns the instrument's current volatility reading.
func (ws *Windows) CurrentVolatility(name string) decimal.Decimal {
	if w, ok := ws.byName[name]; ok {
		return w.Volatility()
	}
	return defaultVolatility
}

// RelativeVolatility returns current volatility over the rolling baseline.
func (ws *Windows) RelativeVolatility(name string) decimal.Decimal {
	if w, ok := ws.byName[name]; ok {
		return w.Relative()
	}
	return defaultVolatility
}
