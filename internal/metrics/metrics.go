// Package metrics provides Prometheus instrumentation for the scalp engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts market ticks accepted from the feed.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalpx_ticks_total",
		Help: "Total market ticks accepted",
	})

	// MalformedTicksTotal counts feed messages dropped as unparseable.
	MalformedTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalpx_malformed_ticks_total",
		Help: "Feed messages dropped as malformed",
	})

	// FeedReconnectsTotal counts feed reconnection attempts.
	FeedReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scalpx_feed_reconnects_total",
		Help: "Feed reconnection attempts",
	})

	// TradesOpenedTotal counts positions opened, partitioned by strategy.
	TradesOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scalpx_trades_opened_total",
		Help: "Total positions opened",
	}, []string{"strategy"})

	// TradesClosedTotal counts positions closed by strategy and exit reason.
	TradesClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scalpx_trades_closed_total",
		Help: "Total positions closed",
	}, []string{"strategy", "reason"})

	// OpenPositions tracks the number of currently open positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scalpx_open_positions",
		Help: "Number of currently open positions",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scalpx_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scalpx_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scalpx_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
