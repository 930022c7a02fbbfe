// Package monitor is the session watchdog: on a fixed period it verifies
// the feed session is alive and triggers exactly one reconnect when it is
// not. It never touches trading state.
package monitor

import (
	"context"
	"log/slog"
	"time"
)

// Session is the feed session surface the watchdog observes.
type Session interface {
	// Alive reports whether the session is connected and recently active.
	Alive(ctx context.Context) bool

	// Reconnect tears the session down so its owner re-establishes it.
	Reconnect(ctx context.Context) error
}

// InitFunc builds the session when it does not exist yet.
type InitFunc func(ctx context.Context) (Session, error)

// Monitor verifies session liveness on a fixed period.
type Monitor struct {
	session  Session
	init     InitFunc
	interval time.Duration
	cooldown time.Duration
}

// New creates a watchdog over an existing session. If session is nil, the
// first verify cycle calls init to create it.
func New(session Session, init InitFunc, interval, cooldown time.Duration) *Monitor {
	return &Monitor{
		session:  session,
		init:     init,
		interval: interval,
		cooldown: cooldown,
	}
}

// Run verifies on the configured period until the context is cancelled.
// After a failed verify the next check waits an extra cooldown so a
// reconnect in progress is not immediately re-triggered.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("session monitor started", "interval", m.interval.String())
	for {
		wait := m.interval
		if !m.Verify(ctx) {
			wait += m.cooldown
		}
		select {
		case <-ctx.Done():
			slog.Info("session monitor stopped")
			return
		case <-time.After(wait):
		}
	}
}

// Verify runs one watchdog cycle: initialize the session if absent,
// otherwise check liveness and trigger exactly one reconnect on failure.
// Returns true when the session is healthy.
func (m *Monitor) Verify(ctx context.Context) bool {
	if m.session == nil {
		if m.init == nil {
			return false
		}
		s, err := m.init(ctx)
		if err != nil {
			slog.Warn("session initialization failed", "err", err)
			return false
		}
		m.session = s
		slog.Info("session initialized by monitor")
		return true
	}

	if m.session.Alive(ctx) {
		return true
	}

	slog.Warn("session verify failed, reconnecting")
	if err := m.session.Reconnect(ctx); err != nil {
		slog.Warn("session reconnect failed", "err", err)
	}
	return false
}
