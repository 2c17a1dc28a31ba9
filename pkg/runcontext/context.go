// Package runcontext provides context accessors for run-scoped values.
//
// This package defines context keys and getter/setter functions for values that
// are set by the task host or HTTP middleware but consumed by services and
// stores. Keeping it free of net/http dependencies lets stores import only what
// they need.
//
// Usage in services (read values):
//
//	runID := runcontext.RunID(ctx)
//	now := runcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = runcontext.WithTime(ctx, fixedTime)
package runcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	runIDKey         struct{}
	transactionIDKey struct{}
	requestIDKey     struct{}
	timeKey          struct{}
)

// WithRunID stores the hosting task's run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the hosting task's run id, or "" when not inside a run.
func RunID(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey{}).(string)
	return v
}

// WithTransactionID stores the run's transaction id used to correlate deferred
// side effects.
func WithTransactionID(ctx context.Context, txID string) context.Context {
	return context.WithValue(ctx, transactionIDKey{}, txID)
}

// TransactionID returns the run's transaction id, or "" when not inside a run.
func TransactionID(ctx context.Context) string {
	v, _ := ctx.Value(transactionIDKey{}).(string)
	return v
}

// WithRequestID stores the HTTP request id set by middleware.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the HTTP request id, or "" outside a request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithTime pins the clock for this context; tests use it to make time
// deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the pinned context time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
