// Package observability provides Prometheus metrics for the runner.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Runner metrics
	ItemsRun          prometheus.Counter
	ItemFailures      *prometheus.CounterVec
	ItemLatency       prometheus.Histogram
	ItemsInFlight     prometheus.Gauge
	RecordWriteErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "evalgate"
	}

	return &Metrics{
		ItemsRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "items_run_total",
			Help:      "Total number of work items executed",
		}),
		ItemFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "item_failures_total",
			Help:      "Total number of failed work items by failure type",
		}, []string{"failure_type"}),
		ItemLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "item_latency_seconds",
			Help:      "Agent invocation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ItemsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "items_in_flight",
			Help:      "Work items currently being executed",
		}),
		RecordWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "record_write_errors_total",
			Help:      "Total number of record store append failures",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordItem records one executed item and its latency.
func RecordItem(latencySeconds float64) {
	DefaultMetrics.ItemsRun.Inc()
	DefaultMetrics.ItemLatency.Observe(latencySeconds)
}

// RecordFailure records a failed item by type.
func RecordFailure(failureType string) {
	DefaultMetrics.ItemFailures.WithLabelValues(failureType).Inc()
}

// RecordWriteError records a record store append failure.
func RecordWriteError() {
	DefaultMetrics.RecordWriteErrors.Inc()
}

// TrackInFlight adjusts the in-flight gauge.
func TrackInFlight(delta float64) {
	DefaultMetrics.ItemsInFlight.Add(delta)
}
