// Package metrics holds the Prometheus collectors exported by KivDB.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Statement outcome labels.
const (
	StatusOK           = "ok"
	StatusCompileError = "compile_error"
	StatusStorageError = "storage_error"
)

var (
	// StatementsTotal counts executed statements by operation and outcome.
	// Statements that fail to compile are recorded with operation "invalid".
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kivdb_statements_total",
			Help: "Total number of KivQL statements executed",
		},
		[]string{"operation", "status"},
	)

	// StorageDuration measures the storage dispatch of each statement,
	// the same span reported as elapsed time in results.
	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kivdb_storage_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)

	StoreKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kivdb_store_keys",
			Help: "Number of keys in the data file at the last stats call",
		},
	)

	StoreSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kivdb_store_size_bytes",
			Help: "Size of the data file in bytes, header included",
		},
	)

	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kivdb_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kivdb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path"},
	)

	TCPConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kivdb_tcp_connections",
			Help: "Number of open TCP client connections",
		},
	)
)

// ObserveStatement records one executed statement. elapsed is ignored for
// statements that never reached storage.
func ObserveStatement(operation, status string, elapsed time.Duration) {
	StatementsTotal.WithLabelValues(operation, status).Inc()
	if status != StatusCompileError {
		StorageDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	}
}
