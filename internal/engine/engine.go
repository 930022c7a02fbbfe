// Package engine is the strategy engine: once per scheduling tick it walks
// every (instrument, side) slot, exits or adjusts open positions, and
// opens new ones when every entry gate passes. The engine owns no state of
// its own — all trade state lives in the state store, prices in the
// snapshot, and order side effects behind the execution gateway.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/catalog"
	"github.com/optix/scalp-engine/internal/history"
	"github.com/optix/scalp-engine/internal/metrics"
	"github.com/optix/scalp-engine/internal/model"
	"github.com/optix/scalp-engine/internal/risk"
	"github.com/optix/scalp-engine/internal/state"
)

// Exit reasons recorded on closed trades.
const (
	ReasonStopLoss  = "stop-loss hit"
	ReasonTarget    = "target hit"
	ReasonTimeLimit = "time-based exit"
)

// Signal is one directional reading for an (instrument, side) pair,
// freshly computed each cycle by the signal provider.
type Signal struct {
	Strength   decimal.Decimal `json:"strength"`
	Confidence decimal.Decimal `json:"confidence"`
}

// SignalProvider supplies directional signals. ok=false means no signal is
// available for the pair this cycle.
type SignalProvider interface {
	Signal(instrument string, side model.ContractSide) (Signal, bool)
}

// ExecutionGateway places, adjusts, and closes orders with the broker.
// The engine depends only on this abstraction, never on a transport.
type ExecutionGateway interface {
	OpenPosition(ctx context.Context, instrument string, side model.ContractSide, qty int64, entry, stop, target decimal.Decimal) error
	ClosePosition(ctx context.Context, instrument string, side model.ContractSide, reason string) error
	AdjustStop(ctx context.Context, instrument string, side model.ContractSide, newStop decimal.Decimal) error
}

// VolatilityProvider supplies current and baseline-relative volatility per
// instrument.
type VolatilityProvider interface {
	CurrentVolatility(instrument string) decimal.Decimal
	RelativeVolatility(instrument string) decimal.Decimal
}

// TradeEvent is pushed to the optional broadcaster when a trade opens or
// closes, for advisory display surfaces.
type TradeEvent struct {
	Type        string             `json:"type"` // "trade_opened" | "trade_closed"
	Instrument  string             `json:"instrument"`
	Side        model.ContractSide `json:"side"`
	StrategyTag string             `json:"strategy_tag"`
	Price       string             `json:"price"`
	Quantity    int64              `json:"quantity"`
	PnL         string             `json:"pnl,omitempty"`
	Reason      string             `json:"reason,omitempty"`
}

// Broadcaster fans trade events out to connected clients.
type Broadcaster interface {
	BroadcastTrade(evt TradeEvent)
}

// Config carries the engine's scheduling and sizing constants.
type Config struct {
	Capital           decimal.Decimal
	RiskPerTradePct   decimal.Decimal
	EvalInterval      time.Duration
	PriceStaleAfter   time.Duration
	WindowOpenMinute  int
	WindowCloseMinute int
	MarketLocation    *time.Location
}

// Params wires the engine's collaborators.
type Params struct {
	Catalog *catalog.Catalog
	Prices  *state.PriceSnapshot
	Store   *state.Store
	History history.Store
	Signals SignalProvider
	Gateway ExecutionGateway
	Vols    VolatilityProvider
	Limiter *risk.Limiter
	Hub     Broadcaster // optional
	Config  Config
}

// Engine evaluates the strategy for every instrument on a fixed period.
type Engine struct {
	catalog *catalog.Catalog
	prices  *state.PriceSnapshot
	store   *state.Store
	history history.Store
	signals SignalProvider
	gateway ExecutionGateway
	vols    VolatilityProvider
	limiter *risk.Limiter
	hub     Broadcaster
	cfg     Config

	standard   RuleSet
	aggressive RuleSet

	now func() time.Time
}

// New creates a strategy engine.
func New(p Params) *Engine {
	loc := p.Config.MarketLocation
	if loc == nil {
		loc = time.UTC
		p.Config.MarketLocation = loc
	}
	return &Engine{
		catalog:    p.Catalog,
		prices:     p.Prices,
		store:      p.Store,
		history:    p.History,
		signals:    p.Signals,
		gateway:    p.Gateway,
		vols:       p.Vols,
		limiter:    p.Limiter,
		hub:        p.Hub,
		cfg:        p.Config,
		standard:   StandardRules(),
		aggressive: AggressiveRules(),
		now:        time.Now,
	}
}

// Run evaluates on the configured period until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.EvalInterval)
	defer ticker.Stop()

	slog.Info("strategy engine started", "interval", e.cfg.EvalInterval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("strategy engine stopped")
			return
		case <-ticker.C:
			e.EvaluateAll(ctx)
		}
	}
}

// EvaluateAll runs one evaluation cycle over every instrument: exit pass
// for open slots, entry pass for flat ones. Day rollover is checked first
// so stale counters never gate a fresh day.
func (e *Engine) EvaluateAll(ctx context.Context) {
	now := e.now().In(e.cfg.MarketLocation)

	if e.store.Rollover(now.Format("2006-01-02")) {
		slog.Info("day rollover, counters reset", "day", now.Format("2006-01-02"))
	}

	for _, inst := range e.catalog.Instruments() {
		for _, side := range model.Sides {
			st, ok := e.store.State(inst.Name, side)
			if !ok {
				continue
			}
			if st.IsActive {
				e.exitPass(ctx, inst, side, st, now)
			} else {
				e.entryPass(ctx, inst, side, now)
			}
		}
	}

	metrics.OpenPositions.Set(float64(len(e.store.OpenStates())))
}

// exitPass checks one open position: a stop or target touch exits first,
// then the holding-time budget, and only then is the trailing stop
// recomputed from the current price.
func (e *Engine) exitPass(ctx context.Context, inst model.Instrument, side model.ContractSide, st model.TradeState, now time.Time) {
	price, at, ok := e.prices.SidePrice(inst.Name, side)
	if !ok || now.Sub(at) > e.cfg.PriceStaleAfter {
		// Stale or unknown price: cannot evaluate exits this cycle.
		slog.Warn("skipping exit pass on stale price",
			"instrument", inst.Name, "side", string(side))
		return
	}

	rules := e.rulesFor(st.StrategyTag)

	switch {
	case price.LessThanOrEqual(st.StopLoss):
		e.closeTrade(ctx, inst.Name, side, price, ReasonStopLoss, now)
	case price.GreaterThanOrEqual(st.Target):
		e.closeTrade(ctx, inst.Name, side, price, ReasonTarget, now)
	case now.Sub(st.EntryTime) >= rules.MaxHolding:
		e.closeTrade(ctx, inst.Name, side, price, ReasonTimeLimit, now)
	default:
		e.trailStop(ctx, inst.Name, side, st, rules, price)
	}
}

// trailStop arms and ratchets the trailing stop. The state store enforces
// the tightening invariant; the engine only proposes favorable moves.
func (e *Engine) trailStop(ctx context.Context, instrument string, side model.ContractSide, st model.TradeState, rules RuleSet, price decimal.Decimal) {
	if !st.TrailingActivated && !rules.TrailingArmed(st.EntryPrice, price) {
		return
	}
	newStop := rules.TrailingStop(price)
	if newStop.LessThanOrEqual(st.StopLoss) {
		return
	}

	if err := e.gateway.AdjustStop(ctx, instrument, side, newStop); err != nil {
		slog.Warn("gateway rejected stop adjustment",
			"instrument", instrument, "side", string(side), "err", err)
		return
	}
	if err := e.store.UpdateStop(instrument, side, newStop); err != nil {
		// A concurrent close can win the race; nothing to do.
		if !errors.Is(err, state.ErrNotActive) && !errors.Is(err, state.ErrStopWidens) {
			slog.Warn("stop update failed",
				"instrument", instrument, "side", string(side), "err", err)
		}
		return
	}
	slog.Info("trailing stop tightened",
		"instrument", instrument, "side", string(side), "stop", newStop.String())
}

func (e *Engine) closeTrade(ctx context.Context, instrument string, side model.ContractSide, price decimal.Decimal, reason string, now time.Time) {
	if err := e.gateway.ClosePosition(ctx, instrument, side, reason); err != nil {
		// Keep the position; the next cycle retries.
		slog.Warn("gateway rejected close",
			"instrument", instrument, "side", string(side), "reason", reason, "err", err)
		return
	}

	rec, err := e.store.Close(instrument, side, price, reason, now)
	if err != nil {
		slog.Warn("close failed", "instrument", instrument, "side", string(side), "err", err)
		return
	}

	if err := e.history.Append(ctx, rec); err != nil {
		slog.Error("trade record persistence failed", "trade_id", rec.ID, "err", err)
	}

	metrics.TradesClosedTotal.WithLabelValues(rec.StrategyTag, reason).Inc()
	slog.Info("trade closed",
		"trade_id", rec.ID,
		"instrument", instrument,
		"side", string(side),
		"strategy", rec.StrategyTag,
		"exit_price", price.String(),
		"pnl", rec.PnL.String(),
		"reason", reason,
	)

	if e.hub != nil {
		e.hub.BroadcastTrade(TradeEvent{
			Type:        "trade_closed",
			Instrument:  instrument,
			Side:        side,
			StrategyTag: rec.StrategyTag,
			Price:       price.String(),
			Quantity:    rec.Quantity,
			PnL:         rec.PnL.String(),
			Reason:      reason,
		})
	}
}

// entryPass gates a flat slot, in order: special day selects the rule set,
// the session window, the day's quotas, then the signal threshold. Only
// when all gates pass is the position sized and opened.
func (e *Engine) entryPass(ctx context.Context, inst model.Instrument, side model.ContractSide, now time.Time) {
	rules := e.standard
	if catalog.IsExpiryDay(inst, now) {
		rules = e.aggressive
	}

	if !e.inWindow(now, rules) {
		return
	}

	// Quota exhaustion is an expected outcome: skip, not an error.
	if e.limiter != nil {
		if err := e.limiter.CheckEntry(inst.Name, e.store.Counters()); err != nil {
			return
		}
	}

	sig, ok := e.signals.Signal(inst.Name, side)
	if !ok || sig.Strength.LessThan(rules.SignalThreshold) {
		return
	}

	price, at, ok := e.prices.SidePrice(inst.Name, side)
	if !ok || now.Sub(at) > e.cfg.PriceStaleAfter {
		return // unknown or stale price: cannot trade
	}
	underlying, _, _ := e.prices.Price(inst.Name, model.LegUnderlying)

	qty := rules.PositionSize(e.cfg.Capital, e.cfg.RiskPerTradePct, price)
	if qty == 0 {
		return
	}
	stop := rules.InitialStop(price)
	target := rules.Target(price)

	if err := e.gateway.OpenPosition(ctx, inst.Name, side, qty, price, stop, target); err != nil {
		slog.Warn("gateway rejected entry",
			"instrument", inst.Name, "side", string(side), "err", err)
		return
	}

	err := e.store.Open(inst.Name, side, state.OpenParams{
		EntryPrice:        price,
		StopLoss:          stop,
		Target:            target,
		Quantity:          qty,
		UnderlyingAtEntry: underlying,
		StrategyTag:       rules.Tag,
		EntryTime:         now,
	})
	if err != nil {
		slog.Warn("entry rejected by state store",
			"instrument", inst.Name, "side", string(side), "err", err)
		return
	}

	metrics.TradesOpenedTotal.WithLabelValues(rules.Tag).Inc()
	slog.Info("trade opened",
		"instrument", inst.Name,
		"side", string(side),
		"strategy", rules.Tag,
		"entry_price", price.String(),
		"qty", qty,
		"stop", stop.String(),
		"target", target.String(),
		"signal", sig.Strength.String(),
	)

	if e.hub != nil {
		e.hub.BroadcastTrade(TradeEvent{
			Type:        "trade_opened",
			Instrument:  inst.Name,
			Side:        side,
			StrategyTag: rules.Tag,
			Price:       price.String(),
			Quantity:    qty,
		})
	}
}

// inWindow reports whether now falls inside the session window, honoring
// the rule set's opening-noise skip.
func (e *Engine) inWindow(now time.Time, rules RuleSet) bool {
	minute := now.Hour()*60 + now.Minute()
	return minute >= e.cfg.WindowOpenMinute+rules.MinMinutesAfterOpen &&
		minute < e.cfg.WindowCloseMinute
}

func (e *Engine) rulesFor(tag string) RuleSet {
	if tag == TagAggressive {
		return e.aggressive
	}
	return e.standard
}
