package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/api"
	"github.com/optix/scalp-engine/internal/catalog"
	"github.com/optix/scalp-engine/internal/config"
	"github.com/optix/scalp-engine/internal/engine"
	"github.com/optix/scalp-engine/internal/feed"
	"github.com/optix/scalp-engine/internal/history"
	"github.com/optix/scalp-engine/internal/metrics"
	"github.com/optix/scalp-engine/internal/model"
	"github.com/optix/scalp-engine/internal/monitor"
	"github.com/optix/scalp-engine/internal/risk"
	momentum "github.com/optix/scalp-engine/internal/signal"
	"github.com/optix/scalp-engine/internal/state"
	"github.com/optix/scalp-engine/internal/vol"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	// --- Trade history store ---
	var hist history.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		hist = history.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			hist = history.NewCachedStore(hist, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory trade history (data will not persist)")
		hist = history.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Instruments and market state ---
	cat := catalog.Default()
	prices := state.NewPriceSnapshot()
	limiter := risk.NewLimiter(cfg.MaxTradesPerDay, cfg.MaxTradesPerInstrument, cfg.Capital, cfg.MaxDailyLossPct)
	st := state.New(cat.Instruments(), limiter)

	names := make([]string, 0, len(cat.Instruments()))
	for _, inst := range cat.Instruments() {
		names = append(names, inst.Name)
	}
	vols := vol.NewWindows(names, cfg.VolatilityPeriod)
	signals := momentum.NewMomentum(momentum.DefaultLookback, cfg.PriceStaleAfter)

	// --- Market data feed ---
	// Underlying ticks drive volatility windows, option ticks drive signals.
	feedMgr := feed.New(feed.Config{
		URL:               cfg.FeedURL,
		HeartbeatInterval: cfg.HeartbeatInterval,
		ReconnectInterval: cfg.ReconnectInterval,
	}, cat, prices, func(ref catalog.LegRef, price decimal.Decimal) {
		switch ref.Leg {
		case model.LegUnderlying:
			vols.Observe(ref.Instrument.Name, price)
		case model.LegCall:
			signals.Observe(ref.Instrument.Name, model.SideCall, price, time.Now())
		case model.LegPut:
			signals.Observe(ref.Instrument.Name, model.SidePut, price, time.Now())
		}
	})

	// --- WebSocket hub ---
	hub := api.NewHub()
	go hub.Run()

	// --- Strategy engine ---
	eng := engine.New(engine.Params{
		Catalog: cat,
		Prices:  prices,
		Store:   st,
		History: hist,
		Signals: signals,
		Gateway: engine.NewPaperGateway(),
		Vols:    vols,
		Limiter: limiter,
		Hub:     hub,
		Config: engine.Config{
			Capital:           cfg.Capital,
			RiskPerTradePct:   cfg.RiskPerTradePct,
			EvalInterval:      cfg.EvalInterval,
			PriceStaleAfter:   cfg.PriceStaleAfter,
			WindowOpenMinute:  cfg.WindowOpenMinute,
			WindowCloseMinute: cfg.WindowCloseMinute,
			MarketLocation:    cfg.MarketLocation,
		},
	})

	// --- Query service ---
	svc := api.NewService(cat, prices, st, hist, eng)

	// --- Background loops ---
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	watchdog := monitor.New(feedMgr, nil, cfg.VerifyInterval, cfg.VerifyCooldown)
	go feedMgr.Run(runCtx)
	go watchdog.Run(runCtx)
	go eng.Run(runCtx)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", svc.Healthz)

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// WebSocket endpoint for real-time trade events.
		r.Get("/ws", hub.HandleWS)

		r.Get("/prices", svc.GetPrices)
		r.Get("/positions", svc.GetPositions)
		r.Get("/trades", svc.GetTrades)
		r.Get("/counters", svc.GetCounters)
		r.Get("/performance/{tag}", svc.GetPerformance)
		r.Get("/recommendation/{instrument}", svc.GetRecommendation)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("scalp-engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancelRun()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down scalp-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("scalp-engine stopped")
}
