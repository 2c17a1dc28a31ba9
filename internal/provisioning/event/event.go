// Package event implements the ordered processor chain provisioning and
// entity changes flow through. Processors register once at startup; each event
// walks the sorted chain until it completes, a processor closes it, or a
// processor suspends it pending asynchronous resumption.
package event

import (
	id "idsync/pkg/domain"
)

// Type is the event kind a processor can subscribe to.
type Type string

const (
	TypeCreate Type = "CREATE"
	TypeUpdate Type = "UPDATE"
	TypeDelete Type = "DELETE"
	TypeCancel Type = "CANCEL"
	TypeStart  Type = "START"
	TypeEnd    Type = "END"
	// TypeNotify defers handling to the async dispatcher.
	TypeNotify Type = "NOTIFY"
)

// Event is the typed envelope carried through the chain. Content holds the
// subject (a provisioning operation, a contract); properties are accessed
// through the typed helpers below instead of an untyped bag.
type Event struct {
	ID       id.OperationID
	Type     Type
	Content  any
	Priority int

	// TransactionID correlates the event with the sync run that caused it.
	TransactionID string

	closed    bool
	suspended bool

	previousSubordinates []id.EntityID
	hasPreviousSubs      bool
}

// Close marks the event so no later processor runs.
func (e *Event) Close() { e.closed = true }

// Closed reports whether a processor short-circuited the chain.
func (e *Event) Closed() bool { return e.closed }

// Suspend pauses the chain; the registry persists a continuation and returns.
// A suspended event does not proceed to subsequent processors unless resumed.
func (e *Event) Suspend() { e.suspended = true }

// Suspended reports whether the event is paused.
func (e *Event) Suspended() bool { return e.suspended }

// SetPreviousSubordinates records the subordinate set captured before a
// contract change, for cascade processors to diff against.
func (e *Event) SetPreviousSubordinates(subs []id.EntityID) {
	e.previousSubordinates = subs
	e.hasPreviousSubs = true
}

// PreviousSubordinates returns the captured subordinate set, if any.
func (e *Event) PreviousSubordinates() ([]id.EntityID, bool) {
	return e.previousSubordinates, e.hasPreviousSubs
}
