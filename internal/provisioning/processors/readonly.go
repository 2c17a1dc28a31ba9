// Package processors contains the ordered chain members reacting to
// provisioning and entity events.
package processors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"idsync/internal/account"
	"idsync/internal/notification"
	"idsync/internal/provisioning/event"
	"idsync/internal/provisioning/models"
	dErrors "idsync/pkg/domain-errors"
)

// readonlyOrder runs before realization so a readonly system is never written.
const readonlyOrder = -500

// OperationStore is the subset of the operation store the processors need.
type OperationStore interface {
	Save(ctx context.Context, op *models.Operation) error
}

// ReadonlySystemProcessor blocks realization against readonly systems: the
// operation is forced to NOT_EXECUTED, persisted, a notification is sent, and
// the chain closes.
type ReadonlySystemProcessor struct {
	systems  account.SystemStore
	ops      OperationStore
	notifier notification.Manager
	logger   *slog.Logger
}

func NewReadonlySystemProcessor(systems account.SystemStore, ops OperationStore, notifier notification.Manager, logger *slog.Logger) *ReadonlySystemProcessor {
	return &ReadonlySystemProcessor{systems: systems, ops: ops, notifier: notifier, logger: logger}
}

func (p *ReadonlySystemProcessor) Name() string { return "readonly-system" }

func (p *ReadonlySystemProcessor) Order() int { return readonlyOrder }

func (p *ReadonlySystemProcessor) EventTypes() []event.Type {
	return []event.Type{event.TypeCreate, event.TypeUpdate, event.TypeDelete}
}

func (p *ReadonlySystemProcessor) Conditional(ctx context.Context, ev *event.Event) bool {
	op, ok := ev.Content.(*models.Operation)
	if !ok {
		return false
	}
	system, err := p.systems.Get(ctx, op.SystemID)
	if err != nil {
		// Fail open here; realization validates the system again.
		return false
	}
	return system.Readonly
}

func (p *ReadonlySystemProcessor) Process(ctx context.Context, ev *event.Event) error {
	op := ev.Content.(*models.Operation)

	op.Result = models.ResultNotExecuted
	op.ResultCode = string(dErrors.CodeSystemReadonly)
	op.ResultMessage = fmt.Sprintf("system %s is readonly, operation %s was not executed", op.SystemID, op.Type)
	if err := p.ops.Save(ctx, op); err != nil {
		return err
	}

	if err := p.notifier.Send(ctx, notification.TopicSystemReadonly, op.ResultMessage, nil); err != nil {
		// Notification failure must not fail the policy outcome.
		p.logger.WarnContext(ctx, "readonly notification failed",
			"operation_id", op.ID.String(), "error", err)
	}

	p.logger.InfoContext(ctx, "operation blocked by readonly system",
		"operation_id", op.ID.String(),
		"system_id", op.SystemID.String(),
		"uid", op.UID,
	)

	ev.Close()
	return nil
}

// RealizationProcessor is the terminal step of a provisioning operation: it
// marks the operation executed and persists it. Speaking the connector wire
// protocol is out of scope; concrete connectors hook in below this order.
type RealizationProcessor struct {
	systems account.SystemStore
	ops     OperationStore
}

func NewRealizationProcessor(systems account.SystemStore, ops OperationStore) *RealizationProcessor {
	return &RealizationProcessor{systems: systems, ops: ops}
}

func (p *RealizationProcessor) Name() string { return "realization" }

func (p *RealizationProcessor) Order() int { return 0 }

func (p *RealizationProcessor) EventTypes() []event.Type {
	return []event.Type{event.TypeCreate, event.TypeUpdate, event.TypeDelete}
}

func (p *RealizationProcessor) Conditional(_ context.Context, ev *event.Event) bool {
	_, ok := ev.Content.(*models.Operation)
	return ok
}

func (p *RealizationProcessor) Process(ctx context.Context, ev *event.Event) error {
	op := ev.Content.(*models.Operation)

	system, err := p.systems.Get(ctx, op.SystemID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "target system not found").
			WithParam("system", op.SystemID.String())
	}
	if system.Disabled {
		op.Result = models.ResultNotExecuted
		op.ResultMessage = "target system is disabled"
		return p.ops.Save(ctx, op)
	}

	now := time.Now()
	op.Result = models.ResultExecuted
	op.ExecutedAt = &now
	return p.ops.Save(ctx, op)
}
