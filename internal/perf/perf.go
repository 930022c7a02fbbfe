// Package perf folds closed-trade history into per-strategy performance
// summaries. Pure read-only computation, no side effects.
package perf

import (
	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/model"
)

// Summary aggregates the closed trades of one strategy tag.
type Summary struct {
	StrategyTag string          `json:"strategy_tag"`
	Count       int             `json:"count"`
	Wins        int             `json:"wins"`
	WinRate     decimal.Decimal `json:"win_rate"` // percentage
	AvgPnL      decimal.Decimal `json:"avg_pnl"`
	TotalPnL    decimal.Decimal `json:"total_pnl"`
	Best        decimal.Decimal `json:"best"`
	Worst       decimal.Decimal `json:"worst"`
}

// Summarize scans records and folds those matching the tag into a Summary.
// An empty tag matches every record. With no matching records the
// zero-valued summary is returned rather than an error; repeated calls
// over unchanged history return identical results.
func Summarize(records []model.TradeRecord, tag string) Summary {
	s := Summary{StrategyTag: tag}

	for _, r := range records {
		if tag != "" && r.StrategyTag != tag {
			continue
		}
		if s.Count == 0 {
			s.Best = r.PnL
			s.Worst = r.PnL
		} else {
			if r.PnL.GreaterThan(s.Best) {
				s.Best = r.PnL
			}
			if r.PnL.LessThan(s.Worst) {
				s.Worst = r.PnL
			}
		}
		if r.PnL.IsPositive() {
			s.Wins++
		}
		s.TotalPnL = s.TotalPnL.Add(r.PnL)
		s.Count++
	}

	if s.Count > 0 {
		n := decimal.NewFromInt(int64(s.Count))
		s.AvgPnL = s.TotalPnL.Div(n).Round(4)
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(n).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return s
}
