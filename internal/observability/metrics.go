// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Trade metrics
	TradesExecuted  *prometheus.CounterVec
	TradesRejected  *prometheus.CounterVec
	TradeGrossValue *prometheus.CounterVec
	TradeLatency    *prometheus.HistogramVec

	// Token metrics
	TokensCreated    prometheus.Counter
	TokensGraduated  prometheus.Counter
	ActiveTokenCount prometheus.Gauge

	// Payout metrics
	FeeTransfers     *prometheus.CounterVec
	PayoutRetries    prometheus.Counter
	PayoutAbandoned  prometheus.Counter
	PayoutQueueDepth prometheus.Gauge

	// Feed metrics
	FeedClients       prometheus.Gauge
	FeedEventsDropped prometheus.Counter

	// Storage metrics
	StoreAppendErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "curve_launchpad"
	}

	return &Metrics{
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_executed_total",
			Help:      "Total number of committed trades by side",
		}, []string{"side"}),
		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_rejected_total",
			Help:      "Total number of rejected trades by reason",
		}, []string{"side", "reason"}),
		TradeGrossValue: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trade_gross_value_total",
			Help:      "Cumulative gross value processed, in base units",
		}, []string{"side"}),
		TradeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trade_latency_seconds",
			Help:      "Trade execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"side"}),

		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tokens_created_total",
			Help:      "Total number of tokens created",
		}),
		TokensGraduated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graduation",
			Name:      "tokens_graduated_total",
			Help:      "Total number of tokens graduated to the external pool",
		}),
		ActiveTokenCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "active_tokens",
			Help:      "Number of tokens currently open for curve trading",
		}),

		FeeTransfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "fee_transfers_total",
			Help:      "Total number of fee transfers by outcome",
		}, []string{"status"}),
		PayoutRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "retries_total",
			Help:      "Total number of fee transfer retries",
		}),
		PayoutAbandoned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "abandoned_total",
			Help:      "Total number of transfers abandoned after exhausting retries",
		}),
		PayoutQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "payout",
			Name:      "queue_depth",
			Help:      "Current number of transfers awaiting reconciliation",
		}),

		FeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Number of connected feed subscribers",
		}),
		FeedEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_dropped_total",
			Help:      "Total number of feed events dropped on slow subscribers",
		}),

		StoreAppendErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "append_errors_total",
			Help:      "Total number of mirror append failures by store",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTrade records a committed trade.
func RecordTrade(side string, grossValue uint64, seconds float64) {
	DefaultMetrics.TradesExecuted.WithLabelValues(side).Inc()
	DefaultMetrics.TradeGrossValue.WithLabelValues(side).Add(float64(grossValue))
	DefaultMetrics.TradeLatency.WithLabelValues(side).Observe(seconds)
}

// RecordRejectedTrade records a rejected trade with its reason label.
func RecordRejectedTrade(side, reason string) {
	DefaultMetrics.TradesRejected.WithLabelValues(side, reason).Inc()
}

// RecordTokenCreated increments the token creation counters.
func RecordTokenCreated() {
	DefaultMetrics.TokensCreated.Inc()
	DefaultMetrics.ActiveTokenCount.Inc()
}

// RecordGraduation moves one token from active to graduated.
func RecordGraduation() {
	DefaultMetrics.TokensGraduated.Inc()
	DefaultMetrics.ActiveTokenCount.Dec()
}

// RecordFeeTransfer records a fee transfer outcome ("ok", "failed", "recovered").
func RecordFeeTransfer(status string) {
	DefaultMetrics.FeeTransfers.WithLabelValues(status).Inc()
}

// RecordStoreAppendError records a mirror append failure.
func RecordStoreAppendError(store string) {
	DefaultMetrics.StoreAppendErrors.WithLabelValues(store).Inc()
}
