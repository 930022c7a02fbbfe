// Package api provides the read-side HTTP handlers: prices, open
// positions, trade history, performance summaries, and recommendations.
//
// All monetary values use shopspring/decimal — never float64 for money.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/catalog"
	"github.com/optix/scalp-engine/internal/engine"
	"github.com/optix/scalp-engine/internal/history"
	"github.com/optix/scalp-engine/internal/model"
	"github.com/optix/scalp-engine/internal/perf"
	"github.com/optix/scalp-engine/internal/state"
)

// Service handles read-only queries against the running engine's state.
type Service struct {
	catalog *catalog.Catalog
	prices  *state.PriceSnapshot
	store   *state.Store
	history history.Store
	engine  *engine.Engine
}

// NewService creates a new query service.
func NewService(cat *catalog.Catalog, prices *state.PriceSnapshot, st *state.Store, hist history.Store, eng *engine.Engine) *Service {
	return &Service{
		catalog: cat,
		prices:  prices,
		store:   st,
		history: hist,
		engine:  eng,
	}
}

// --- Response types ---

// LegPrice is one leg's latest market price.
type LegPrice struct {
	Instrument string          `json:"instrument"`
	Leg        string          `json:"leg"`
	Key        string          `json:"key"`
	Price      decimal.Decimal `json:"price"`
	At         time.Time       `json:"at"`
}

// OpenPosition is one active position in the positions response.
type OpenPosition struct {
	Instrument string             `json:"instrument"`
	Side       model.ContractSide `json:"side"`
	State      model.TradeState   `json:"state"`
}

// --- HTTP Handlers ---

// Healthz handles GET /healthz.
func (s *Service) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"scalp-engine"}`))
}

// GetPrices handles GET /api/prices.
// Returns the latest price for every leg that has ticked.
func (s *Service) GetPrices(w http.ResponseWriter, r *http.Request) {
	prices := []LegPrice{}
	for _, inst := range s.catalog.Instruments() {
		for _, leg := range []model.Leg{model.LegUnderlying, model.LegCall, model.LegPut} {
			price, at, ok := s.prices.Price(inst.Name, leg)
			if !ok {
				continue
			}
			prices = append(prices, LegPrice{
				Instrument: inst.Name,
				Leg:        string(leg),
				Key:        inst.LegKey(leg),
				Price:      price,
				At:         at,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prices)
}

// GetPositions handles GET /api/positions.
func (s *Service) GetPositions(w http.ResponseWriter, r *http.Request) {
	positions := []OpenPosition{}
	for key, st := range s.store.OpenStates() {
		positions = append(positions, OpenPosition{
			Instrument: key.Instrument,
			Side:       key.Side,
			State:      st,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

// GetTrades handles GET /api/trades.
// Optionally filtered by ?strategy=<tag> or ?instrument=<name>.
func (s *Service) GetTrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		records []model.TradeRecord
		err     error
	)
	switch {
	case r.URL.Query().Get("strategy") != "":
		records, err = s.history.ListByStrategy(ctx, r.URL.Query().Get("strategy"))
	case r.URL.Query().Get("instrument") != "":
		records, err = s.history.ListByInstrument(ctx, r.URL.Query().Get("instrument"))
	default:
		records, err = s.history.ListAll(ctx)
	}
	if err != nil {
		slog.Error("trade history query failed", "err", err)
		writeError(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.TradeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// GetPerformance handles GET /api/performance/{tag}.
// Use tag "all" for a summary across every strategy.
func (s *Service) GetPerformance(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	ctx := r.Context()

	var (
		records []model.TradeRecord
		err     error
	)
	if tag == "all" {
		tag = ""
		records, err = s.history.ListAll(ctx)
	} else {
		records, err = s.history.ListByStrategy(ctx, tag)
	}
	if err != nil {
		slog.Error("performance query failed", "err", err)
		writeError(w, "failed to load trade history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(perf.Summarize(records, tag))
}

// GetRecommendation handles GET /api/recommendation/{instrument}.
func (s *Service) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "instrument")
	if _, err := s.catalog.Lookup(name); err != nil {
		writeError(w, "unknown instrument: "+name, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Recommend(name))
}

// GetCounters handles GET /api/counters.
// Returns today's trade counts and realized P&L.
func (s *Service) GetCounters(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.store.Counters())
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
