// Package audit records synchronization and provisioning actions for
// operational forensics. Events are emitted from domain logic and fan out to
// a sink; the Kafka sink is optional and the log sink is always safe.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Action names what happened. Keep the vocabulary small and stable, the
// stream is consumed by people grepping.
type Action string

const (
	ActionRunStarted        Action = "sync_run_started"
	ActionRunFinished       Action = "sync_run_finished"
	ActionRunCancelled      Action = "sync_run_cancelled"
	ActionRunRecovered      Action = "sync_run_recovered"
	ActionItemResolved      Action = "sync_item_resolved"
	ActionOperationExecuted Action = "operation_executed"
	ActionOperationBlocked  Action = "operation_blocked"
	ActionPasswordHandout   Action = "uniform_password_handout"
)

// Event is emitted from domain logic. Transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	TransactionID string    `json:"transaction_id,omitempty"`
	SyncConfigID  string    `json:"sync_config_id,omitempty"`
	SystemID      string    `json:"system_id,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
}

// Sink receives audit events. Emit must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

// LogSink writes audit events to the structured log. Default sink when no
// broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		slog.String("action", string(event.Action)),
		slog.String("transaction_id", event.TransactionID),
		slog.String("subject", event.Subject),
		slog.String("detail", event.Detail),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }

// ChannelSink decouples emitters from the real sink: Emit enqueues, a Worker
// drains. Full buffer drops the event rather than blocking domain logic.
type ChannelSink struct {
	ch     chan Event
	logger *slog.Logger
}

func NewChannelSink(buffer int, logger *slog.Logger) *ChannelSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelSink{ch: make(chan Event, buffer), logger: logger}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) error {
	select {
	case s.ch <- event:
		return nil
	default:
		s.logger.WarnContext(ctx, "audit buffer full, event dropped",
			slog.String("action", string(event.Action)))
		return nil
	}
}

// Inbox is consumed by the Worker.
func (s *ChannelSink) Inbox() <-chan Event { return s.ch }

func (s *ChannelSink) Close() error {
	close(s.ch)
	return nil
}

// Emitter stamps and forwards events, filling Timestamp when the caller left
// it zero.
type Emitter struct {
	sink Sink
}

func NewEmitter(sink Sink) *Emitter {
	if sink == nil {
		sink = NewLogSink(nil)
	}
	return &Emitter{sink: sink}
}

func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return e.sink.Emit(ctx, event)
}

func (e *Emitter) Close() error { return e.sink.Close() }
