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
	// Stream metrics
	NotificationsReceived prometheus.Counter
	NotificationsDropped  *prometheus.CounterVec
	StreamReconnects      prometheus.Counter
	StreamState           prometheus.Gauge

	// Detection metrics
	TransactionsFetched  prometheus.Counter
	TransactionsSkipped  *prometheus.CounterVec
	DetectionsTotal      *prometheus.CounterVec
	AlertsSent           prometheus.Counter
	ScrutinyDegradations prometheus.Counter

	// Latency metrics
	RPCCallLatency         *prometheus.HistogramVec
	NotificationHandleTime prometheus.Histogram

	// Storage metrics
	EventsStored      prometheus.Counter
	StorageErrors     *prometheus.CounterVec
	DuplicatesSkipped prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "cex_wallet_tracker"
	}

	return &Metrics{
		NotificationsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received over WebSocket",
		}),
		NotificationsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "notifications_dropped_total",
			Help:      "Total number of notifications dropped by reason",
		}, []string{"reason"}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),
		StreamState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "connection_state",
			Help:      "Current WebSocket connection state as an enum value",
		}),

		TransactionsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "transactions_fetched_total",
			Help:      "Total number of transactions fetched for analysis",
		}),
		TransactionsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "transactions_skipped_total",
			Help:      "Total number of notifications or wallet checks skipped by reason",
		}, []string{"reason"}),
		DetectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "events_total",
			Help:      "Total number of detection events by scrutiny condition",
		}, []string{"condition"}),
		AlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "alerts_sent_total",
			Help:      "Total number of alerts dispatched",
		}),
		ScrutinyDegradations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "scrutiny_degradations_total",
			Help:      "Total number of scrutiny checks that degraded due to RPC failures",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		NotificationHandleTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "notification_handle_seconds",
			Help:      "Time to fully process one log notification in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		EventsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "events_stored_total",
			Help:      "Total number of detection events persisted",
		}),
		StorageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of storage errors by operation",
		}, []string{"operation"}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of detection events skipped as duplicates",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordStreamReconnect increments the reconnect attempt counter.
func RecordStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// SetStreamState publishes the connection state enum value.
func SetStreamState(state int32) {
	DefaultMetrics.StreamState.Set(float64(state))
}

// RecordNotificationDropped increments the dropped-notification counter.
func RecordNotificationDropped(reason string) {
	DefaultMetrics.NotificationsDropped.WithLabelValues(reason).Inc()
}

// RecordScrutinyDegradation increments the degraded-scrutiny counter.
func RecordScrutinyDegradation() {
	DefaultMetrics.ScrutinyDegradations.Inc()
}

// ObserveRPCLatency records one RPC call duration.
func ObserveRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
