package perf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func rec(tag string, pnl float64) model.TradeRecord {
	return model.TradeRecord{
		Instrument:  "NIFTY",
		Side:        model.SideCall,
		StrategyTag: tag,
		PnL:         d(pnl),
		ExitTime:    time.Now().UTC(),
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, "aggressive")

	if s.Count != 0 || s.Wins != 0 {
		t.Errorf("expected zero counts, got %+v", s)
	}
	if !s.TotalPnL.IsZero() || !s.WinRate.IsZero() || !s.Best.IsZero() || !s.Worst.IsZero() {
		t.Errorf("expected zero-valued summary, got %+v", s)
	}
}

func TestSummarize_FiltersByTag(t *testing.T) {
	records := []model.TradeRecord{
		rec("standard", 100),
		rec("aggressive", -40),
		rec("standard", -20),
		rec("aggressive", 90),
		rec("aggressive", 10),
	}

	s := Summarize(records, "aggressive")
	if s.Count != 3 {
		t.Fatalf("expected 3 records, got %d", s.Count)
	}
	if s.Wins != 2 {
		t.Errorf("expected 2 wins, got %d", s.Wins)
	}
	// total = -40 + 90 + 10 = 60
	if !s.TotalPnL.Equal(d(60)) {
		t.Errorf("expected total 60, got %s", s.TotalPnL)
	}
	// avg = 60/3 = 20
	if !s.AvgPnL.Equal(d(20)) {
		t.Errorf("expected avg 20, got %s", s.AvgPnL)
	}
	// win rate = 2/3 = 66.67%
	if !s.WinRate.Equal(d(66.67)) {
		t.Errorf("expected win rate 66.67, got %s", s.WinRate)
	}
	if !s.Best.Equal(d(90)) || !s.Worst.Equal(d(-40)) {
		t.Errorf("unexpected best/worst: %s / %s", s.Best, s.Worst)
	}
}

func TestSummarize_AllLosses(t *testing.T) {
	records := []model.TradeRecord{rec("standard", -10), rec("standard", -30)}

	s := Summarize(records, "standard")
	if s.Wins != 0 || !s.WinRate.IsZero() {
		t.Errorf("expected zero win rate, got %+v", s)
	}
	if !s.Best.Equal(d(-10)) || !s.Worst.Equal(d(-30)) {
		t.Errorf("best/worst must track losses too: %s / %s", s.Best, s.Worst)
	}
}

func TestSummarize_EmptyTagMatchesAll(t *testing.T) {
	records := []model.TradeRecord{rec("standard", 10), rec("aggressive", 20)}

	s := Summarize(records, "")
	if s.Count != 2 {
		t.Errorf("expected 2 records for empty tag, got %d", s.Count)
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	records := []model.TradeRecord{rec("standard", 15), rec("standard", -5), rec("standard", 25)}

	first := Summarize(records, "standard")
	second := Summarize(records, "standard")

	if first.Count != second.Count || !first.TotalPnL.Equal(second.TotalPnL) ||
		!first.WinRate.Equal(second.WinRate) || !first.AvgPnL.Equal(second.AvgPnL) ||
		!first.Best.Equal(second.Best) || !first.Worst.Equal(second.Worst) {
		t.Errorf("summaries differ across identical calls:\n%+v\n%+v", first, second)
	}
}
