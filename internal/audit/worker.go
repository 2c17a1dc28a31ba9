package audit

import (
	"context"
	"log/slog"
)

// Worker drains audit events from a channel into a sink so emitters never
// block on the broker. Run returns when the context ends or the inbox closes.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Emit(ctx, event); err != nil {
				// A sink hiccup must not stop the drain loop.
				w.logger.WarnContext(ctx, "audit emit failed",
					"action", string(event.Action), "error", err)
			}
		}
	}
}
