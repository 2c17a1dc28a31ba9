package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for synchronization runs.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	ItemsProcessed *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	RunsActive     prometheus.Gauge
}

// New creates and registers all synchronization metrics.
func New() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idsync_sync_runs_total",
			Help: "Synchronization runs finished, by terminal state",
		}, []string{"result"}),
		ItemsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idsync_sync_items_processed_total",
			Help: "Reconciliation items processed, by situation and result",
		}, []string{"situation", "result"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idsync_sync_run_duration_seconds",
			Help:    "Wall time of finished synchronization runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RunsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "idsync_sync_runs_active",
			Help: "Synchronization runs currently executing",
		}),
	}
}

// RunFinished records one terminal run.
func (m *Metrics) RunFinished(result string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// ItemProcessed records one reconciliation item.
func (m *Metrics) ItemProcessed(situation, result string) {
	m.ItemsProcessed.WithLabelValues(situation, result).Inc()
}
