package provisioning

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"idsync/internal/provisioning/event"
	"idsync/internal/provisioning/metrics"
)

// Dispatcher consumes asynchronously enqueued events (the NOTIFY path) and
// runs them through the registry on a bounded worker pool. A failed event is
// logged, not fatal: async work has no caller to surface errors to.
type Dispatcher struct {
	registry *event.Registry
	inbox    chan *event.Event
	workers  int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type DispatcherOption func(*Dispatcher)

func DispatcherWithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

func DispatcherWithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

func NewDispatcher(registry *event.Registry, workers int, opts ...DispatcherOption) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	d := &Dispatcher{
		registry: registry,
		inbox:    make(chan *event.Event, 256),
		workers:  workers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit enqueues an event for async processing. Blocks when the inbox is
// full, applying backpressure to the producer.
func (d *Dispatcher) Submit(ctx context.Context, ev *event.Event) error {
	select {
	case d.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for range d.workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ev := <-d.inbox:
					if d.metrics != nil {
						d.metrics.EventsDispatch.Inc()
					}
					if _, err := d.registry.Process(ctx, ev); err != nil {
						d.logger.ErrorContext(ctx, "async event processing failed",
							"event_type", string(ev.Type), "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}
