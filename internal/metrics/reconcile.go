package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Reconciliation outbox metrics.
var (
	ReconcileAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_attempts_total",
			Help:      "Search index reconciliation attempts by operation and outcome",
		},
		[]string{"op", "outcome"}, // outcome: success / failure
	)

	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of one reconciliation attempt including task wait",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	ReconcileQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_queue_depth",
			Help:      "Operations waiting for a reconciliation worker",
		},
	)

	ReconcileOverflowTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_queue_overflow_total",
			Help:      "Operations sent straight to the failure ledger because the queue was full",
		},
	)

	ReconcileFailedUpdates = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_failed_updates",
			Help:      "Rows in the failed search index update ledger at the last retry pass",
		},
	)
)

// Search index client metrics.
var (
	IndexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_requests_total",
			Help:      "Requests to the external search index by driver, operation and status",
		},
		[]string{"driver", "op", "status"}, // status: success / error
	)

	IndexRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_request_duration_seconds",
			Help:      "External search index request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"driver", "op"},
	)
)

// Search metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Garden search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"ranked"},
	)

	SearchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_errors_total",
			Help:      "Garden searches that failed",
		},
		[]string{"kind"}, // client / internal
	)
)

var registerOnce sync.Once

// Register adds the outbox, index client and search collectors to the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ReconcileAttemptsTotal,
			ReconcileDuration,
			ReconcileQueueDepth,
			ReconcileOverflowTotal,
			ReconcileFailedUpdates,
			IndexRequestsTotal,
			IndexRequestDuration,
			SearchDuration,
			SearchErrorsTotal,
		)
	})
}
