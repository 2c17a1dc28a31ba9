// Package task hosts long-running work such as a synchronization run: it
// hands the run a unique transaction id, tracks progress counters, and
// carries the cooperative cancellation flag the run checks between items.
package task

import (
	"context"
	"crypto/rand"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
)

// PropertySyncConfigID is the one required property of a synchronization task.
const PropertySyncConfigID = "sync_config_id"

// Runnable is the work a Host executes. Init validates properties eagerly and
// must fail before any item is touched; it receives the host so it can record
// the run under its transaction id. Process does the work; End always runs,
// with the Process error if any.
type Runnable interface {
	Init(ctx context.Context, host *Host, properties map[string]string) error
	Process(ctx context.Context, host *Host) error
	End(ctx context.Context, host *Host, processErr error)
}

// Host is one execution of a Runnable. Counters are updated by the run and
// read concurrently by status endpoints, hence the atomics.
type Host struct {
	transactionID string
	started       time.Time

	processed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Bool
}

// NewHost mints a host with a fresh monotonic transaction id. ULIDs sort by
// creation time, so run logs ordered by transaction id come out in start
// order.
func NewHost() *Host {
	now := time.Now()
	return &Host{
		transactionID: ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		started:       now,
	}
}

func (h *Host) TransactionID() string { return h.transactionID }

func (h *Host) Started() time.Time { return h.started }

// IncProcessed bumps the processed counter and returns the new total.
func (h *Host) IncProcessed() int64 { return h.processed.Add(1) }

func (h *Host) IncFailed() int64 { return h.failed.Add(1) }

func (h *Host) Processed() int64 { return h.processed.Load() }

func (h *Host) Failed() int64 { return h.failed.Load() }

// Cancel raises the cooperative flag. The run observes it between items, an
// in-flight item always completes.
func (h *Host) Cancel() { h.cancelled.Store(true) }

func (h *Host) Cancelled() bool { return h.cancelled.Load() }

// Execute drives the lifecycle. Init runs synchronously, so validation
// failures surface to the caller before anything starts; Process and End then
// run on their own goroutine. End runs regardless of the Process outcome so
// finalization (releasing flags, flushing deferred notifications) is never
// skipped. The caller must hand over a context that outlives its own scope.
func Execute(ctx context.Context, r Runnable, properties map[string]string) (*Host, error) {
	host := NewHost()
	if err := r.Init(ctx, host, properties); err != nil {
		return nil, err
	}
	go func() {
		r.End(ctx, host, r.Process(ctx, host))
	}()
	return host, nil
}

// SyncConfigIDProperty extracts and validates the required config id
// property.
func SyncConfigIDProperty(properties map[string]string) (id.SyncConfigID, error) {
	raw, ok := properties[PropertySyncConfigID]
	if !ok || raw == "" {
		return id.SyncConfigID{}, dErrors.New(dErrors.CodeInvalidInput, "sync config id property is required").
			WithParam("property", PropertySyncConfigID)
	}
	configID, err := id.ParseSyncConfigID(raw)
	if err != nil {
		return id.SyncConfigID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "sync config id property is not a valid uuid").
			WithParam("property", PropertySyncConfigID)
	}
	return configID, nil
}
