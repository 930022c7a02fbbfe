package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/api"
	"github.com/optix/scalp-engine/internal/catalog"
	"github.com/optix/scalp-engine/internal/engine"
	"github.com/optix/scalp-engine/internal/history"
	"github.com/optix/scalp-engine/internal/model"
	"github.com/optix/scalp-engine/internal/state"
	"github.com/optix/scalp-engine/internal/vol"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type noSignals struct{}

func (noSignals) Signal(string, model.ContractSide) (engine.Signal, bool) {
	return engine.Signal{}, false
}

type testEnv struct {
	catalog *catalog.Catalog
	prices  *state.PriceSnapshot
	store   *state.Store
	history *history.MemoryStore
	router  chi.Router
}

// newTestEnv creates a query service over in-memory state and a chi router.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat := catalog.Default()
	prices := state.NewPriceSnapshot()
	st := state.New(cat.Instruments(), nil)
	hist := history.NewMemoryStore()

	names := make([]string, 0, len(cat.Instruments()))
	for _, inst := range cat.Instruments() {
		names = append(names, inst.Name)
	}

	eng := engine.New(engine.Params{
		Catalog: cat,
		Prices:  prices,
		Store:   st,
		History: hist,
		Signals: noSignals{},
		Gateway: engine.NewPaperGateway(),
		Vols:    vol.NewWindows(names, vol.DefaultCapacity),
		Config: engine.Config{
			Capital:           d(100000),
			RiskPerTradePct:   d(1),
			EvalInterval:      time.Second,
			PriceStaleAfter:   30 * time.Second,
			WindowOpenMinute:  555,
			WindowCloseMinute: 915,
			MarketLocation:    time.UTC,
		},
	})

	svc := api.NewService(cat, prices, st, hist, eng)

	r := chi.NewRouter()
	r.Get("/healthz", svc.Healthz)
	r.Get("/api/prices", svc.GetPrices)
	r.Get("/api/positions", svc.GetPositions)
	r.Get("/api/trades", svc.GetTrades)
	r.Get("/api/counters", svc.GetCounters)
	r.Get("/api/performance/{tag}", svc.GetPerformance)
	r.Get("/api/recommendation/{instrument}", svc.GetRecommendation)

	return &testEnv{catalog: cat, prices: prices, store: st, history: hist, router: r}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// seedRecord appends one closed trade to the history store.
func seedRecord(t *testing.T, hist *history.MemoryStore, instrument, tag string, pnl float64) {
	t.Helper()
	now := time.Now().UTC()
	rec := &model.TradeRecord{
		ID:          "test-" + instrument + "-" + tag,
		Instrument:  instrument,
		Side:        model.SideCall,
		StrategyTag: tag,
		EntryPrice:  d(100),
		ExitPrice:   d(100).Add(d(pnl)),
		Quantity:    1,
		PnL:         d(pnl),
		PnLPct:      d(pnl),
		EntryTime:   now.Add(-5 * time.Minute),
		ExitTime:    now,
		ExitReason:  "target hit",
	}
	if err := hist.Append(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", body["status"])
	}
}

func TestGetPrices_OnlyTickedLegs(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/prices")
	var prices []api.LegPrice
	if err := json.Unmarshal(rec.Body.Bytes(), &prices); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("prices before any tick = %d, want 0", len(prices))
	}

	env.prices.Set("NIFTY", model.LegUnderlying, d(22510.35), time.Now())
	env.prices.Set("NIFTY", model.LegCall, d(145.2), time.Now())

	rec = env.get(t, "/api/prices")
	if err := json.Unmarshal(rec.Body.Bytes(), &prices); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(prices) != 2 {
		t.Fatalf("prices = %d, want 2", len(prices))
	}
}

func TestGetPositions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/positions")
	var positions []api.OpenPosition
	if err := json.Unmarshal(rec.Body.Bytes(), &positions); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("positions = %d, want 0", len(positions))
	}

	err := env.store.Open("NIFTY", model.SideCall, state.OpenParams{
		EntryPrice:        d(100),
		StopLoss:          d(99.6),
		Target:            d(101.2),
		Quantity:          3750,
		UnderlyingAtEntry: d(22510),
		StrategyTag:       engine.TagAggressive,
		EntryTime:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	rec = env.get(t, "/api/positions")
	if err := json.Unmarshal(rec.Body.Bytes(), &positions); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	if positions[0].Instrument != "NIFTY" || positions[0].Side != model.SideCall {
		t.Fatalf("unexpected position key: %+v", positions[0])
	}
	if positions[0].State.Quantity != 3750 {
		t.Fatalf("quantity = %d, want 3750", positions[0].State.Quantity)
	}
}

func TestGetTrades_Filters(t *testing.T) {
	env := newTestEnv(t)
	seedRecord(t, env.history, "NIFTY", engine.TagStandard, 50)
	seedRecord(t, env.history, "BANKNIFTY", engine.TagAggressive, -20)

	var trades []model.TradeRecord

	rec := env.get(t, "/api/trades")
	if err := json.Unmarshal(rec.Body.Bytes(), &trades); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("all trades = %d, want 2", len(trades))
	}

	rec = env.get(t, "/api/trades?strategy="+engine.TagAggressive)
	if err := json.Unmarshal(rec.Body.Bytes(), &trades); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(trades) != 1 || trades[0].Instrument != "BANKNIFTY" {
		t.Fatalf("strategy filter returned %+v", trades)
	}

	rec = env.get(t, "/api/trades?instrument=NIFTY")
	if err := json.Unmarshal(rec.Body.Bytes(), &trades); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(trades) != 1 || trades[0].Instrument != "NIFTY" {
		t.Fatalf("instrument filter returned %+v", trades)
	}
}

func TestGetPerformance(t *testing.T) {
	env := newTestEnv(t)
	seedRecord(t, env.history, "NIFTY", engine.TagStandard, 50)
	seedRecord(t, env.history, "BANKNIFTY", engine.TagStandard, -20)
	seedRecord(t, env.history, "NIFTY", engine.TagAggressive, 30)

	rec := env.get(t, "/api/performance/"+engine.TagStandard)
	var summary struct {
		Count   int             `json:"count"`
		Wins    int             `json:"wins"`
		WinRate decimal.Decimal `json:"win_rate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if summary.Count != 2 || summary.Wins != 1 {
		t.Fatalf("summary = %+v, want count 2 wins 1", summary)
	}

	rec = env.get(t, "/api/performance/all")
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if summary.Count != 3 {
		t.Fatalf("all count = %d, want 3", summary.Count)
	}
}

func TestGetRecommendation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/recommendation/NIFTY")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body engine.Recommendation
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Instrument != "NIFTY" {
		t.Fatalf("instrument = %q, want NIFTY", body.Instrument)
	}
	if body.MarketState == "" || body.RiskTier == "" {
		t.Fatalf("incomplete recommendation: %+v", body)
	}

	rec = env.get(t, "/api/recommendation/UNKNOWN")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetCounters(t *testing.T) {
	env := newTestEnv(t)

	err := env.store.Open("NIFTY", model.SidePut, state.OpenParams{
		EntryPrice:  d(200),
		StopLoss:    d(198),
		Target:      d(204),
		Quantity:    100,
		StrategyTag: engine.TagStandard,
		EntryTime:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	rec := env.get(t, "/api/counters")
	var counters model.DailyCounters
	if err := json.Unmarshal(rec.Body.Bytes(), &counters); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if counters.TradesToday != 1 {
		t.Fatalf("trades today = %d, want 1", counters.TradesToday)
	}
}
