// Package metrics provides Prometheus instrumentation for the PnL engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RejectedTransfers counts raw transfers rejected by the normalizer,
	// partitioned by reason.
	RejectedTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpnl_rejected_transfers_total",
		Help: "Raw transfers rejected before entering the ledger",
	}, []string{"reason"})

	// Cycles counts computation cycles by result: ok, error or skipped.
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpnl_cycles_total",
		Help: "Computation cycles by result",
	}, []string{"result"})

	// CycleDuration tracks the duration of complete computation cycles.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wpnl_cycle_duration_seconds",
		Help:    "Computation cycle duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	})

	// PriceFetchErrors counts failed price oracle requests.
	PriceFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpnl_price_fetch_errors_total",
		Help: "Failed price oracle requests",
	})

	// PriceCacheHits counts price lookups served by the cache, by result.
	PriceCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpnl_price_cache_lookups_total",
		Help: "Price cache lookups by result (hit or miss)",
	}, []string{"result"})

	// Positions tracks the number of positions of the last report, by state.
	Positions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wpnl_positions",
		Help: "Positions of the last report by state (active, closed)",
	}, []string{"state"})

	// Anomalies tracks the positions of the last report that sold more
	// than they bought.
	Anomalies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wpnl_oversold_positions",
		Help: "Positions with an over-sell anomaly in the last report",
	})

	// PriceUnavailable tracks open positions that could not be valued.
	PriceUnavailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wpnl_price_unavailable_positions",
		Help: "Open positions without price in the last report",
	})

	// PnL tracks the PnL of the last report in quote currency, by kind
	// (realized, unrealized). For display only.
	PnL = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wpnl_pnl_quote",
		Help: "PnL of the last report in quote currency",
	}, []string{"kind"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wpnl_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wpnl_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wpnl_http_request_duration_seconds",
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
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// The route pattern keeps the label cardinality bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
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

// Hijack lets WebSocket upgrades through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
