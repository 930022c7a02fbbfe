// Package feed owns the live price-feed session: one websocket connection
// dialed to the upstream tick stream, subscribed to every catalog leg,
// with ping heartbeats and automatic reconnection at a fixed interval.
//
// Every disconnect is retried forever — there is no circuit breaker. A
// single Run goroutine dials serially, so reconnect attempts never
// overlap. Malformed ticks are logged and dropped, never fatal.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/optix/scalp-engine/internal/catalog"
	"github.com/optix/scalp-engine/internal/metrics"
	"github.com/optix/scalp-engine/internal/state"
)

// tick is the upstream wire format for one price update.
type tick struct {
	Key string          `json:"key"`
	LTP decimal.Decimal `json:"ltp"`
}

// subscribeMsg registers the session for last-traded-price updates.
type subscribeMsg struct {
	Action string   `json:"action"` // always "subscribe"
	Keys   []string `json:"keys"`
}

var errMalformedTick = errors.New("feed: malformed tick")

// Config carries the feed session tunables.
type Config struct {
	URL               string
	HeartbeatInterval time.Duration
	ReconnectInterval time.Duration
}

// Manager owns the feed session lifecycle and routes inbound ticks into
// the price snapshot via the catalog's key index.
type Manager struct {
	cfg      Config
	catalog  *catalog.Catalog
	snapshot *state.PriceSnapshot

	// onTick, when set, observes every accepted tick (volatility windows).
	onTick func(ref catalog.LegRef, price decimal.Decimal)

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	lastActivity time.Time
}

// New creates a feed manager. onTick may be nil.
func New(cfg Config, cat *catalog.Catalog, snapshot *state.PriceSnapshot, onTick func(ref catalog.LegRef, price decimal.Decimal)) *Manager {
	return &Manager{
		cfg:      cfg,
		catalog:  cat,
		snapshot: snapshot,
		onTick:   onTick,
	}
}

// Run connects and pumps ticks until the context is cancelled. Each
// disconnect schedules a redial after the fixed reconnect interval.
func (m *Manager) Run(ctx context.Context) {
	first := true
	for {
		if ctx.Err() != nil {
			return
		}
		if !first {
			metrics.FeedReconnectsTotal.Inc()
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.cfg.ReconnectInterval):
			}
		}
		first = false

		if err := m.connect(ctx); err != nil {
			slog.Warn("feed connect failed", "url", m.cfg.URL, "err", err)
			continue
		}
		m.readLoop(ctx)
	}
}

// connect dials the feed and subscribes all catalog legs. A failed
// subscribe tears the connection down so the next connect retries it.
func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.cfg.URL, err)
	}

	if err := conn.WriteJSON(subscribeMsg{Action: "subscribe", Keys: m.catalog.Keys()}); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * m.cfg.HeartbeatInterval))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(2 * m.cfg.HeartbeatInterval))
		m.touch()
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.connected = true
	m.lastActivity = time.Now()
	m.mu.Unlock()

	slog.Info("feed connected", "url", m.cfg.URL, "keys", len(m.catalog.Keys()))
	return nil
}

// readLoop pumps inbound messages until the connection dies, with a ping
// heartbeat running alongside. Returns once disconnected.
func (m *Manager) readLoop(ctx context.Context) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	done := make(chan struct{})
	go m.heartbeat(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("feed disconnected", "err", err)
			}
			break
		}
		m.handleMessage(data)
	}

	close(done)
	m.disconnect(conn)
}

// heartbeat pings on a fixed period to keep the session alive. A failed
// ping closes the connection, which unblocks the read loop.
func (m *Manager) heartbeat(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Warn("feed heartbeat failed", "err", err)
				conn.Close()
				return
			}
		}
	}
}

// handleMessage parses one inbound frame and applies it to the snapshot.
// Malformed payloads and unknown keys are logged and dropped.
func (m *Manager) handleMessage(data []byte) {
	t, err := parseTick(data)
	if err != nil {
		metrics.MalformedTicksTotal.Inc()
		slog.Warn("dropping malformed tick", "err", err)
		return
	}

	ref, err := m.catalog.Resolve(t.Key)
	if err != nil {
		metrics.MalformedTicksTotal.Inc()
		slog.Warn("dropping tick for unknown key", "key", t.Key)
		return
	}

	m.snapshot.Set(ref.Instrument.Name, ref.Leg, t.LTP, time.Now())
	m.touch()
	metrics.TicksTotal.Inc()

	if m.onTick != nil {
		m.onTick(ref, t.LTP)
	}
}

func parseTick(data []byte) (tick, error) {
	var t tick
	if err := json.Unmarshal(data, &t); err != nil {
		return tick{}, fmt.Errorf("%w: %v", errMalformedTick, err)
	}
	if t.Key == "" {
		return tick{}, fmt.Errorf("%w: empty key", errMalformedTick)
	}
	if !t.LTP.IsPositive() {
		return tick{}, fmt.Errorf("%w: non-positive ltp %s", errMalformedTick, t.LTP)
	}
	return t, nil
}

func (m *Manager) touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

func (m *Manager) disconnect(conn *websocket.Conn) {
	conn.Close()
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.connected = false
	}
	m.mu.Unlock()
}

// Alive reports feed liveness: connected, with a tick or pong seen within
// two heartbeat periods. Used by the session monitor's verify cycle.
func (m *Manager) Alive(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected && time.Since(m.lastActivity) < 2*m.cfg.HeartbeatInterval
}

// Reconnect tears down the current connection; the run loop redials after
// the fixed interval. Safe to call when already disconnected.
func (m *Manager) Reconnect(_ context.Context) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}
