package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/catalog"
	"github.com/optix/scalp-engine/internal/model"
)

// Recommendation is an advisory-only reading for one instrument: a
// directional bias, a risk tier, and a target multiplier. It never feeds
// execution directly.
type Recommendation struct {
	Instrument       string          `json:"instrument"`
	SessionPhase     string          `json:"session_phase"` // morning | midday | afternoon | closed
	MarketState      string          `json:"market_state"`  // calm | normal | volatile
	Bias             string          `json:"bias"`          // bullish | bearish | neutral
	RiskTier         string          `json:"risk_tier"`     // low | moderate | high
	TargetMultiplier decimal.Decimal `json:"target_multiplier"`
	CurrentVol       decimal.Decimal `json:"current_volatility"`
	RelativeVol      decimal.Decimal `json:"relative_volatility"`
	ATMStrike        int64           `json:"atm_strike,omitempty"` // 0 until the underlying has ticked
	NextExpiry       string          `json:"next_expiry"`          // YYYY-MM-DD
	GeneratedAt      time.Time       `json:"generated_at"`
}

// Relative-volatility bands for market-state classification.
var (
	calmBelow     = decimal.NewFromFloat(0.8)
	volatileAbove = decimal.NewFromFloat(1.2)
	biasThreshold = decimal.NewFromFloat(0.5)
)

// Recommend maps the session phase, the relative volatility against the
// rolling baseline, and the call/put signal divergence to a qualitative
// recommendation. Read-only: no state is mutated.
func (e *Engine) Recommend(instrument string) Recommendation {
	now := e.now().In(e.cfg.MarketLocation)

	rec := Recommendation{
		Instrument:       instrument,
		SessionPhase:     e.sessionPhase(now),
		CurrentVol:       e.vols.CurrentVolatility(instrument),
		RelativeVol:      e.vols.RelativeVolatility(instrument),
		TargetMultiplier: decimal.NewFromFloat(2.0),
		GeneratedAt:      now,
	}

	if inst, err := e.catalog.Lookup(instrument); err == nil {
		rec.NextExpiry = catalog.NextExpiry(inst, now).Format("2006-01-02")
		if underlying, _, ok := e.prices.Price(instrument, model.LegUnderlying); ok {
			rec.ATMStrike = catalog.ATMStrike(inst, underlying)
		}
	}

	switch {
	case rec.RelativeVol.LessThan(calmBelow):
		rec.MarketState = "calm"
		rec.RiskTier = "low"
		rec.TargetMultiplier = decimal.NewFromFloat(1.5)
	case rec.RelativeVol.GreaterThan(volatileAbove):
		rec.MarketState = "volatile"
		rec.RiskTier = "high"
		rec.TargetMultiplier = decimal.NewFromFloat(2.5)
	default:
		rec.MarketState = "normal"
		rec.RiskTier = "moderate"
	}

	// Divergence between the call and put signals sets the bias.
	var callStrength, putStrength decimal.Decimal
	if sig, ok := e.signals.Signal(instrument, model.SideCall); ok {
		callStrength = sig.Strength
	}
	if sig, ok := e.signals.Signal(instrument, model.SidePut); ok {
		putStrength = sig.Strength
	}
	divergence := callStrength.Sub(putStrength)
	switch {
	case divergence.GreaterThanOrEqual(biasThreshold):
		rec.Bias = "bullish"
	case divergence.LessThanOrEqual(biasThreshold.Neg()):
		rec.Bias = "bearish"
	default:
		rec.Bias = "neutral"
	}

	return rec
}

// sessionPhase buckets the time of day within the market session.
func (e *Engine) sessionPhase(now time.Time) string {
	minute := now.Hour()*60 + now.Minute()
	if minute < e.cfg.WindowOpenMinute || minute >= e.cfg.WindowCloseMinute {
		return "closed"
	}
	span := e.cfg.WindowCloseMinute - e.cfg.WindowOpenMinute
	switch {
	case minute < e.cfg.WindowOpenMinute+span/3:
		return "morning"
	case minute < e.cfg.WindowOpenMinute+2*span/3:
		return "midday"
	default:
		return "afternoon"
	}
}
