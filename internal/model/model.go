// Package model defines the core domain types shared across the scalp engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractSide identifies the call or put leg of an instrument.
type ContractSide string

const (
	SideCall ContractSide = "CE"
	SidePut  ContractSide = "PE"
)

// Sides lists both contract sides in a stable order.
var Sides = []ContractSide{SideCall, SidePut}

// Leg identifies one of the three priced legs of an instrument:
// the underlying index and the two option contracts.
type Leg string

const (
	LegUnderlying Leg = "underlying"
	LegCall       Leg = "call"
	LegPut        Leg = "put"
)

// Instrument is the immutable description of one tradable index and its
// option legs. Built from the static catalog at startup, never mutated.
type Instrument struct {
	Name           string `json:"name"`
	UnderlyingKey  string `json:"underlying_key"`  // feed subscription key
	CallKey        string `json:"call_key"`
	PutKey         string `json:"put_key"`
	Exchange       string `json:"exchange"`        // underlying leg exchange
	OptionExchange string `json:"option_exchange"` // option legs exchange
	StrikeInterval int64  `json:"strike_interval"`
	ExpiryWeekday  time.Weekday `json:"expiry_weekday"`
}

// LegKey returns the feed subscription key for one leg.
func (i Instrument) LegKey(leg Leg) string {
	switch leg {
	case LegCall:
		return i.CallKey
	case LegPut:
		return i.PutKey
	default:
		return i.UnderlyingKey
	}
}

// TradeState is the live state of one (instrument, side) slot. Every slot
// exists from process start in the flat state (IsActive=false); the state
// store mutates it only through atomic open/close/update-stop operations.
type TradeState struct {
	IsActive          bool            `json:"is_active"`
	EntryPrice        decimal.Decimal `json:"entry_price"`
	EntryTime         time.Time       `json:"entry_time"`
	StopLoss          decimal.Decimal `json:"stop_loss"`
	InitialStopLoss   decimal.Decimal `json:"initial_stop_loss"`
	Target            decimal.Decimal `json:"target"`
	TrailingActivated bool            `json:"trailing_activated"`
	UnderlyingAtEntry decimal.Decimal `json:"underlying_at_entry"`
	Quantity          int64           `json:"quantity"`
	StrategyTag       string          `json:"strategy_tag"`
}

// TradeRecord is an immutable record of a closed trade.
// Once created, these are never modified or deleted.
type TradeRecord struct {
	ID         string          `json:"id" db:"id"`
	Instrument string          `json:"instrument" db:"instrument"`
	Side       ContractSide    `json:"side" db:"side"`
	StrategyTag string         `json:"strategy_tag" db:"strategy_tag"`
	EntryPrice decimal.Decimal `json:"entry_price" db:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price" db:"exit_price"`
	Quantity   int64           `json:"quantity" db:"quantity"`
	PnL        decimal.Decimal `json:"pnl" db:"pnl"`           // (exit - entry) * quantity
	PnLPct     decimal.Decimal `json:"pnl_pct" db:"pnl_pct"`   // vs entry price
	EntryTime  time.Time       `json:"entry_time" db:"entry_time"`
	ExitTime   time.Time       `json:"exit_time" db:"exit_time"`
	ExitReason string          `json:"exit_reason" db:"exit_reason"`
}

// DailyCounters is a point-in-time copy of the day's trade counters.
type DailyCounters struct {
	Day           string           `json:"day"` // YYYY-MM-DD in market time
	TradesToday   int64            `json:"trades_today"`
	PerInstrument map[string]int64 `json:"per_instrument"`
	PerStrategy   map[string]int64 `json:"per_strategy"`
	RealizedPnL   decimal.Decimal  `json:"realized_pnl"`
}
