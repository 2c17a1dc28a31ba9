package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the provisioning pipeline.
type Metrics struct {
	OperationsTotal *prometheus.CounterVec
	EventsDispatch  prometheus.Counter
}

// New creates and registers all provisioning metrics.
func New() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idsync_provisioning_operations_total",
			Help: "Provisioning operations processed, by type and result state",
		}, []string{"type", "result"}),
		EventsDispatch: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idsync_provisioning_async_events_total",
			Help: "Events handled by the async dispatcher",
		}),
	}
}

// OperationProcessed records the terminal state of one operation.
func (m *Metrics) OperationProcessed(opType, result string) {
	m.OperationsTotal.WithLabelValues(opType, result).Inc()
}
