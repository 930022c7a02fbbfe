package config

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_MissingFeedURLFatal(t *testing.T) {
	t.Setenv("FEED_URL", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingFeedURL) {
		t.Fatalf("expected ErrMissingFeedURL, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FEED_URL", "wss://feed.example.com/stream")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Capital.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("expected default capital 100000, got %s", cfg.Capital)
	}
	if cfg.MaxTradesPerDay != 40 {
		t.Errorf("expected default max trades 40, got %d", cfg.MaxTradesPerDay)
	}
	if cfg.ReconnectInterval != 5*time.Second {
		t.Errorf("expected default reconnect 5s, got %v", cfg.ReconnectInterval)
	}
	if cfg.VerifyInterval != 15*time.Minute {
		t.Errorf("expected default verify 15m, got %v", cfg.VerifyInterval)
	}
	// 09:15 → 555, 15:15 → 915.
	if cfg.WindowOpenMinute != 555 || cfg.WindowCloseMinute != 915 {
		t.Errorf("unexpected session window: %d–%d", cfg.WindowOpenMinute, cfg.WindowCloseMinute)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FEED_URL", "wss://feed.example.com/stream")
	t.Setenv("CAPITAL", "250000")
	t.Setenv("MAX_TRADES_PER_DAY", "10")
	t.Setenv("FEED_RECONNECT_INTERVAL", "10s")
	t.Setenv("MARKET_OPEN", "09:30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Capital.Equal(decimal.NewFromInt(250000)) {
		t.Errorf("expected capital 250000, got %s", cfg.Capital)
	}
	if cfg.MaxTradesPerDay != 10 {
		t.Errorf("expected max trades 10, got %d", cfg.MaxTradesPerDay)
	}
	if cfg.ReconnectInterval != 10*time.Second {
		t.Errorf("expected reconnect 10s, got %v", cfg.ReconnectInterval)
	}
	if cfg.WindowOpenMinute != 9*60+30 {
		t.Errorf("expected open minute 570, got %d", cfg.WindowOpenMinute)
	}
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	t.Setenv("FEED_URL", "wss://feed.example.com/stream")
	t.Setenv("CAPITAL", "lots")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid CAPITAL")
	}

	t.Setenv("CAPITAL", "100000")
	t.Setenv("MARKET_CLOSE", "08:00") // before default open
	if _, err := Load(); err == nil {
		t.Error("expected error for close before open")
	}
}
