// Package metrics provides Prometheus instrumentation for the trade engine.
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
	// TradesTotal counts committed trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basesim_trades_total",
		Help: "Total number of trades committed",
	}, []string{"side"})

	// TradeRejections counts rejected trades by rejection reason.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basesim_trade_rejections_total",
		Help: "Trades rejected before commit",
	}, []string{"reason"})

	// TradeLatency tracks end-to-end trade execution latency.
	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "basesim_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	// ProfilesOnboarded counts freshly created ledgers.
	ProfilesOnboarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basesim_profiles_onboarded_total",
		Help: "Fresh ledgers created for new wallets",
	})

	// ProfilesRecovered counts corrupt profiles reset to a fresh ledger.
	ProfilesRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basesim_profiles_recovered_total",
		Help: "Corrupt profiles discarded and recreated",
	})

	// ProfilesReset counts user-requested profile resets.
	ProfilesReset = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basesim_profiles_reset_total",
		Help: "Profiles reset to fresh state on user request",
	})

	// QuoteFailures counts market data lookups that returned no usable price.
	QuoteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basesim_quote_failures_total",
		Help: "Market quote lookups that failed",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "basesim_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basesim_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "basesim_http_request_duration_seconds",
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

		// Use the raw path for the label; wallet addresses keep the
		// cardinality bounded to one series per active wallet.
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
