// Package risk enforces the daily entry gates: trade quotas and the
// daily loss circuit. Quota exhaustion is an expected outcome for the
// strategy engine (skip the entry, carry on), so violations are reported
// as sentinel errors rather than panics or logs.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

var (
	// ErrDailyQuotaExhausted is returned when the day's global trade
	// count has reached the configured maximum.
	ErrDailyQuotaExhausted = errors.New("risk: daily trade quota exhausted")

	// ErrInstrumentQuotaExhausted is returned when one instrument has
	// used up its per-instrument trade allowance for the day.
	ErrInstrumentQuotaExhausted = errors.New("risk: instrument trade quota exhausted")

	// ErrDailyLossLimit is returned when realized losses for the day
	// have reached the configured percentage of capital. No further
	// entries are permitted until the next day rollover.
	ErrDailyLossLimit = errors.New("risk: daily loss limit reached")
)

// Limiter holds the day-level entry limits.
type Limiter struct {
	// MaxTradesPerDay caps the global number of entries per trading day.
	MaxTradesPerDay int64

	// MaxTradesPerInstrument caps entries per instrument per day.
	MaxTradesPerInstrument int64

	// MaxDailyLoss is the absolute loss amount (capital × loss percentage)
	// at which the day's trading halts.
	MaxDailyLoss decimal.Decimal
}

// NewLimiter creates a limiter from capital and the configured limits.
// maxLossPct is a percentage of capital, e.g. 5 for 5%.
func NewLimiter(maxPerDay, maxPerInstrument int64, capital, maxLossPct decimal.Decimal) *Limiter {
	return &Limiter{
		MaxTradesPerDay:        maxPerDay,
		MaxTradesPerInstrument: maxPerInstrument,
		MaxDailyLoss:           capital.Mul(maxLossPct).Div(decimal.NewFromInt(100)),
	}
}

// CheckEntry validates whether a new entry for the instrument respects the
// day's quotas and loss limit, given the current counters. Returns nil if
// the entry is allowed, or a sentinel error naming the violated gate.
func (l *Limiter) CheckEntry(instrument string, counters model.DailyCounters) error {
	if l.MaxTradesPerDay > 0 && counters.TradesToday >= l.MaxTradesPerDay {
		return ErrDailyQuotaExhausted
	}
	if l.MaxTradesPerInstrument > 0 && counters.PerInstrument[instrument] >= l.MaxTradesPerInstrument {
		return ErrInstrumentQuotaExhausted
	}
	if l.MaxDailyLoss.IsPositive() && counters.RealizedPnL.IsNegative() &&
		counters.RealizedPnL.Neg().GreaterThanOrEqual(l.MaxDailyLoss) {
		return ErrDailyLossLimit
	}
	return nil
}
