package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy tags recorded on trades and used to pick the rule set for an
// open position.
const (
	TagStandard   = "standard"
	TagAggressive = "aggressive"
)

// RuleSet bundles the constants that differ between the standard strategy
// and the expiry-day aggressive variant. The gating order and state
// machine are identical for both — one parameterized engine, not two code
// paths.
type RuleSet struct {
	Tag string

	// StopPct is the protective stop distance as a percentage of entry
	// price.
	StopPct decimal.Decimal

	// RewardMultiple sets the target at entry + stop distance × multiple.
	RewardMultiple decimal.Decimal

	// SizeMultiplier scales the per-trade risk amount.
	SizeMultiplier decimal.Decimal

	// SignalThreshold is the minimum signal strength. The comparison is
	// inclusive: a signal exactly at the threshold triggers an entry.
	SignalThreshold decimal.Decimal

	// MaxHolding is the time-based exit budget.
	MaxHolding time.Duration

	// TrailingActivationPct is the favorable move (as % of entry) at
	// which the trailing stop arms.
	TrailingActivationPct decimal.Decimal

	// TrailingDistancePct is the trailing stop distance below the
	// current price once armed.
	TrailingDistancePct decimal.Decimal

	// MinMinutesAfterOpen skips the first minutes of the session, where
	// opening-range noise dominates.
	MinMinutesAfterOpen int
}

var hundred = decimal.NewFromInt(100)

// StandardRules returns the default intraday rule set.
func StandardRules() RuleSet {
	return RuleSet{
		Tag:                   TagStandard,
		StopPct:               decimal.NewFromFloat(1.0),
		RewardMultiple:        decimal.NewFromFloat(2.0),
		SizeMultiplier:        decimal.NewFromFloat(1.0),
		SignalThreshold:       decimal.NewFromFloat(2.0),
		MaxHolding:            10 * time.Minute,
		TrailingActivationPct: decimal.NewFromFloat(1.0),
		TrailingDistancePct:   decimal.NewFromFloat(0.4),
	}
}

// AggressiveRules returns the expiry-day rule set: tighter stops, larger
// size, lower signal bar, shorter holding budget.
func AggressiveRules() RuleSet {
	return RuleSet{
		Tag:                   TagAggressive,
		StopPct:               decimal.NewFromFloat(0.4),
		RewardMultiple:        decimal.NewFromFloat(3.0),
		SizeMultiplier:        decimal.NewFromFloat(1.5),
		SignalThreshold:       decimal.NewFromFloat(1.5),
		MaxHolding:            3 * time.Minute,
		TrailingActivationPct: decimal.NewFromFloat(0.6),
		TrailingDistancePct:   decimal.NewFromFloat(0.24),
		MinMinutesAfterOpen:   15,
	}
}

// StopDistance is the absolute stop distance for an entry at price.
func (r RuleSet) StopDistance(price decimal.Decimal) decimal.Decimal {
	return price.Mul(r.StopPct).Div(hundred)
}

// PositionSize computes the integer quantity for an entry: risk amount
// (capital × risk% × size multiplier) divided by the stop distance,
// floored, with a minimum of one contract.
func (r RuleSet) PositionSize(capital, riskPct, price decimal.Decimal) int64 {
	stopDistance := r.StopDistance(price)
	if !stopDistance.IsPositive() {
		return 0
	}
	riskAmount := capital.Mul(riskPct).Div(hundred).Mul(r.SizeMultiplier)
	qty := riskAmount.Div(stopDistance).Floor().IntPart()
	if qty < 1 {
		return 1
	}
	return qty
}

// Target is the take-profit level for an entry at price.
func (r RuleSet) Target(price decimal.Decimal) decimal.Decimal {
	return price.Add(r.StopDistance(price).Mul(r.RewardMultiple))
}

// InitialStop is the protective stop for an entry at price.
func (r RuleSet) InitialStop(price decimal.Decimal) decimal.Decimal {
	return price.Sub(r.StopDistance(price))
}

// TrailingArmed reports whether price has moved far enough above entry to
// arm the trailing stop.
func (r RuleSet) TrailingArmed(entry, price decimal.Decimal) bool {
	trigger := entry.Mul(hundred.Add(r.TrailingActivationPct)).Div(hundred)
	return price.GreaterThanOrEqual(trigger)
}

// TrailingStop is the stop level trailed below the current price.
func (r RuleSet) TrailingStop(price decimal.Decimal) decimal.Decimal {
	return price.Mul(hundred.Sub(r.TrailingDistancePct)).Div(hundred)
}
