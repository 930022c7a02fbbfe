package engine

import (
	"testing"
	"time"

	"github.com/optix/scalp-engine/internal/model"
)

func TestRecommend_MarketStateFromRelativeVolatility(t *testing.T) {
	tests := []struct {
		rel        float64
		state      string
		tier       string
		multiplier float64
	}{
		{0.5, "calm", "low", 1.5},
		{1.0, "normal", "moderate", 2.0},
		{1.5, "volatile", "high", 2.5},
	}
	for _, tc := range tests {
		env := newTestEnv(t, nil, monday)
		env.vols.rel = d(tc.rel)

		rec := env.engine.Recommend("NIFTY")
		if rec.MarketState != tc.state {
			t.Errorf("rel=%.1f: expected state %q, got %q", tc.rel, tc.state, rec.MarketState)
		}
		if rec.RiskTier != tc.tier {
			t.Errorf("rel=%.1f: expected tier %q, got %q", tc.rel, tc.tier, rec.RiskTier)
		}
		if !rec.TargetMultiplier.Equal(d(tc.multiplier)) {
			t.Errorf("rel=%.1f: expected multiplier %.1f, got %s", tc.rel, tc.multiplier, rec.TargetMultiplier)
		}
	}
}

func TestRecommend_BiasFromSignalDivergence(t *testing.T) {
	env := newTestEnv(t, nil, monday)

	env.signals.bySide[model.SideCall] = Signal{Strength: d(3)}
	env.signals.bySide[model.SidePut] = Signal{Strength: d(1)}
	if rec := env.engine.Recommend("NIFTY"); rec.Bias != "bullish" {
		t.Errorf("expected bullish bias, got %q", rec.Bias)
	}

	env.signals.bySide[model.SideCall] = Signal{Strength: d(1)}
	env.signals.bySide[model.SidePut] = Signal{Strength: d(3)}
	if rec := env.engine.Recommend("NIFTY"); rec.Bias != "bearish" {
		t.Errorf("expected bearish bias, got %q", rec.Bias)
	}

	env.signals.bySide[model.SideCall] = Signal{Strength: d(2)}
	env.signals.bySide[model.SidePut] = Signal{Strength: d(2.2)}
	if rec := env.engine.Recommend("NIFTY"); rec.Bias != "neutral" {
		t.Errorf("expected neutral bias for small divergence, got %q", rec.Bias)
	}
}

func TestRecommend_SessionPhases(t *testing.T) {
	tests := []struct {
		hour, minute int
		phase        string
	}{
		{8, 0, "closed"},
		{9, 30, "morning"},
		{12, 0, "midday"},
		{14, 30, "afternoon"},
		{16, 0, "closed"},
	}
	for _, tc := range tests {
		at := time.Date(2025, 6, 2, tc.hour, tc.minute, 0, 0, time.UTC)
		env := newTestEnv(t, nil, at)

		rec := env.engine.Recommend("NIFTY")
		if rec.SessionPhase != tc.phase {
			t.Errorf("%02d:%02d: expected phase %q, got %q", tc.hour, tc.minute, tc.phase, rec.SessionPhase)
		}
	}
}

func TestRecommend_ATMStrikeAndExpiry(t *testing.T) {
	env := newTestEnv(t, nil, monday)

	// No underlying tick yet: strike unknown, expiry still resolved.
	rec := env.engine.Recommend("NIFTY")
	if rec.ATMStrike != 0 {
		t.Errorf("expected no ATM strike before a tick, got %d", rec.ATMStrike)
	}
	// Monday 2025-06-02 → Thursday 2025-06-05.
	if rec.NextExpiry != "2025-06-05" {
		t.Errorf("expected expiry 2025-06-05, got %q", rec.NextExpiry)
	}

	// 22526 rounds to the 22550 strike on the 50-point grid.
	env.tick("NIFTY", model.LegUnderlying, 22526, monday)
	rec = env.engine.Recommend("NIFTY")
	if rec.ATMStrike != 22550 {
		t.Errorf("expected ATM strike 22550, got %d", rec.ATMStrike)
	}
}

func TestRecommend_IncludesVolatilityReadings(t *testing.T) {
	env := newTestEnv(t, nil, monday)
	env.vols.rel = d(1.4)

	rec := env.engine.Recommend("NIFTY")
	if !rec.CurrentVol.Equal(d(1)) {
		t.Errorf("expected current volatility 1, got %s", rec.CurrentVol)
	}
	if !rec.RelativeVol.Equal(d(1.4)) {
		t.Errorf("expected relative volatility 1.4, got %s", rec.RelativeVol)
	}
}

func TestRecommend_ReadOnly(t *testing.T) {
	env := newTestEnv(t, nil, monday)
	env.signals.bySide[model.SideCall] = Signal{Strength: d(9)}
	env.tick("NIFTY", model.LegCall, 100, monday)

	env.engine.Recommend("NIFTY")

	if st, _ := env.store.State("NIFTY", model.SideCall); st.IsActive {
		t.Fatal("recommendation must never open a trade")
	}
	if c := env.store.Counters(); c.TradesToday != 0 {
		t.Errorf("recommendation must not touch counters, got %d", c.TradesToday)
	}
}
