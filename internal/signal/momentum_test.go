package signal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func feed(p *MomentumProvider, inst string, side model.ContractSide, base time.Time, prices ...float64) {
	for i, v := range prices {
		p.Observe(inst, side, d(v), base.Add(time.Duration(i)*time.Second))
	}
}

func TestSignal_NoSamplesNoSignal(t *testing.T) {
	p := NewMomentum(8, 0)
	if _, ok := p.Signal("NIFTY", model.SideCall); ok {
		t.Fatal("expected no signal without observations")
	}

	feed(p, "NIFTY", model.SideCall, time.Now(), 100, 101, 102)
	if _, ok := p.Signal("NIFTY", model.SideCall); ok {
		t.Fatal("expected no signal below minimum samples")
	}
}

func TestSignal_RallyScoresAboveThreshold(t *testing.T) {
	p := NewMomentum(8, 0)
	feed(p, "NIFTY", model.SideCall, time.Now(), 100, 100.5, 101, 101.5, 102)

	sig, ok := p.Signal("NIFTY", model.SideCall)
	if !ok {
		t.Fatal("expected a signal")
	}
	// 2% move against a 0.5% reference.
	if !sig.Strength.Equal(d(4)) {
		t.Fatalf("strength = %s, want 4", sig.Strength)
	}
	if !sig.Confidence.IsPositive() {
		t.Fatalf("confidence = %s, want positive", sig.Confidence)
	}
}

func TestSignal_FallingPremiumNoSignal(t *testing.T) {
	p := NewMomentum(8, 0)
	feed(p, "NIFTY", model.SidePut, time.Now(), 100, 99.5, 99, 98.5, 98)

	if _, ok := p.Signal("NIFTY", model.SidePut); ok {
		t.Fatal("expected no signal on falling premium")
	}
}

func TestSignal_SidesIndependent(t *testing.T) {
	p := NewMomentum(8, 0)
	now := time.Now()
	feed(p, "NIFTY", model.SideCall, now, 100, 101, 102, 103)
	feed(p, "NIFTY", model.SidePut, now, 100, 99, 98, 97)

	if _, ok := p.Signal("NIFTY", model.SideCall); !ok {
		t.Fatal("expected call signal")
	}
	if _, ok := p.Signal("NIFTY", model.SidePut); ok {
		t.Fatal("expected no put signal")
	}
}

func TestSignal_StalePrintsExpire(t *testing.T) {
	p := NewMomentum(8, 30*time.Second)
	base := time.Now().Add(-5 * time.Minute)
	feed(p, "NIFTY", model.SideCall, base, 100, 101, 102, 103)

	if _, ok := p.Signal("NIFTY", model.SideCall); ok {
		t.Fatal("expected stale window to yield no signal")
	}
}

func TestObserve_WindowEvictsOldest(t *testing.T) {
	p := NewMomentum(4, 0)
	// Old falling prints are evicted; the surviving window is a rally.
	feed(p, "NIFTY", model.SideCall, time.Now(), 200, 150, 100, 101, 102, 103, 104)

	sig, ok := p.Signal("NIFTY", model.SideCall)
	if !ok {
		t.Fatal("expected signal from surviving window")
	}
	if !sig.Strength.IsPositive() {
		t.Fatalf("strength = %s, want positive", sig.Strength)
	}
}
