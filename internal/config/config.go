// Package config loads the engine's static configuration from environment
// variables. Every tunable has a default except FEED_URL: without a feed
// endpoint the process must not proceed into trading, so Load fails and
// main exits.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMissingFeedURL is returned when FEED_URL is not set.
var ErrMissingFeedURL = errors.New("config: FEED_URL is required")

// Config is the static configuration object built once at startup.
type Config struct {
	Port        string
	FeedURL     string
	DatabaseURL string
	RedisURL    string

	// Risk and sizing.
	Capital                decimal.Decimal
	RiskPerTradePct        decimal.Decimal
	MaxTradesPerDay        int64
	MaxTradesPerInstrument int64
	MaxDailyLossPct        decimal.Decimal

	// Feed/session timing.
	HeartbeatInterval time.Duration
	ReconnectInterval time.Duration
	VerifyInterval    time.Duration
	VerifyCooldown    time.Duration

	// Strategy scheduling.
	EvalInterval     time.Duration
	PriceStaleAfter  time.Duration
	VolatilityPeriod int

	// Market session window, minutes from midnight in MarketLocation.
	WindowOpenMinute  int
	WindowCloseMinute int
	MarketLocation    *time.Location
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	feedURL := os.Getenv("FEED_URL")
	if feedURL == "" {
		return nil, ErrMissingFeedURL
	}

	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		FeedURL:     feedURL,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.Capital, err = getenvDecimal("CAPITAL", "100000"); err != nil {
		return nil, err
	}
	if cfg.RiskPerTradePct, err = getenvDecimal("RISK_PER_TRADE_PCT", "1.0"); err != nil {
		return nil, err
	}
	if cfg.MaxDailyLossPct, err = getenvDecimal("MAX_DAILY_LOSS_PCT", "5.0"); err != nil {
		return nil, err
	}
	if cfg.MaxTradesPerDay, err = getenvInt("MAX_TRADES_PER_DAY", 40); err != nil {
		return nil, err
	}
	if cfg.MaxTradesPerInstrument, err = getenvInt("MAX_TRADES_PER_INSTRUMENT", 20); err != nil {
		return nil, err
	}

	if cfg.HeartbeatInterval, err = getenvDuration("FEED_HEARTBEAT_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectInterval, err = getenvDuration("FEED_RECONNECT_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.VerifyInterval, err = getenvDuration("SESSION_VERIFY_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.VerifyCooldown, err = getenvDuration("SESSION_VERIFY_COOLDOWN", time.Minute); err != nil {
		return nil, err
	}
	if cfg.EvalInterval, err = getenvDuration("EVAL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PriceStaleAfter, err = getenvDuration("PRICE_STALE_AFTER", 30*time.Second); err != nil {
		return nil, err
	}

	volPeriod, err := getenvInt("VOLATILITY_PERIOD", 30)
	if err != nil {
		return nil, err
	}
	cfg.VolatilityPeriod = int(volPeriod)

	if cfg.WindowOpenMinute, err = getenvClock("MARKET_OPEN", "09:15"); err != nil {
		return nil, err
	}
	if cfg.WindowCloseMinute, err = getenvClock("MARKET_CLOSE", "15:15"); err != nil {
		return nil, err
	}
	if cfg.WindowCloseMinute <= cfg.WindowOpenMinute {
		return nil, fmt.Errorf("config: MARKET_CLOSE must be after MARKET_OPEN")
	}

	tz := getenv("MARKET_TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: invalid MARKET_TIMEZONE %q: %w", tz, err)
	}
	cfg.MarketLocation = loc

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDecimal(key, fallback string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(getenv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return v, nil
}

func getenvInt(key string, fallback int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return v, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return v, nil
}

// getenvClock parses an HH:MM time of day into minutes from midnight.
func getenvClock(key, fallback string) (int, error) {
	t, err := time.Parse("15:04", getenv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s (want HH:MM): %w", key, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
