package models

import (
	"time"

	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
)

func errInvalid(msg string) error {
	return dErrors.New(dErrors.CodeInvalidInput, msg)
}

// RunState is the lifecycle state of one synchronization run.
type RunState string

const (
	RunStateRunning   RunState = "RUNNING"
	RunStateCompleted RunState = "COMPLETED"
	RunStateCancelled RunState = "CANCELLED"
	RunStateFailed    RunState = "FAILED"
)

// ItemResult is the outcome recorded for a processed item.
type ItemResult string

const (
	ItemResultSuccess ItemResult = "SUCCESS"
	ItemResultWarning ItemResult = "WARNING"
	ItemResultError   ItemResult = "ERROR"
	ItemResultIgnored ItemResult = "IGNORED"
)

// SyncLog is the persisted audit trail of one run: created at run start,
// counters updated per item, closed at run end.
type SyncLog struct {
	ID           id.SyncLogID
	SyncConfigID id.SyncConfigID

	// TransactionID correlates deferred side effects (uniform-password
	// notifications) with this run. ULID, so logs sort by start time.
	TransactionID string

	State   RunState
	Started time.Time
	Ended   *time.Time

	Processed      int
	Linked         int
	Unlinked       int
	MissingEntity  int
	MissingAccount int
	Ignored        int
	Errors         int

	ContainsError bool
	Message       string
}

// SyncItemLog records the handling of one UID within a run. Appended in fetch
// order; Seq preserves that order across stores.
type SyncItemLog struct {
	ID        id.SyncItemID
	SyncLogID id.SyncLogID
	Seq       int

	UID       string
	Situation Situation
	Action    string
	Result    ItemResult
	Message   string

	AccountID *id.AccountID
	EntityID  *id.EntityID

	CreatedAt time.Time
}
