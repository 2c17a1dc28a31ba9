package domain

import (
	"github.com/google/uuid"

	dErrors "idsync/pkg/domain-errors"
)

// Typed UUID identifiers. Keeping each id its own type prevents a sync config
// id from being passed where an account id is expected.
type (
	SystemID     uuid.UUID
	SyncConfigID uuid.UUID
	SyncLogID    uuid.UUID
	SyncItemID   uuid.UUID
	AccountID    uuid.UUID
	EntityID     uuid.UUID
	LinkID       uuid.UUID
	ContractID   uuid.UUID
	OperationID  uuid.UUID
)

func (v SystemID) String() string     { return uuid.UUID(v).String() }
func (v SyncConfigID) String() string { return uuid.UUID(v).String() }
func (v SyncLogID) String() string    { return uuid.UUID(v).String() }
func (v SyncItemID) String() string   { return uuid.UUID(v).String() }
func (v AccountID) String() string    { return uuid.UUID(v).String() }
func (v EntityID) String() string     { return uuid.UUID(v).String() }
func (v LinkID) String() string       { return uuid.UUID(v).String() }
func (v ContractID) String() string   { return uuid.UUID(v).String() }
func (v OperationID) String() string  { return uuid.UUID(v).String() }

// IsZero reports whether the id is the nil UUID, the value of an unset field.
func (v SyncConfigID) IsZero() bool { return uuid.UUID(v) == uuid.Nil }

func NewSystemID() SystemID         { return SystemID(uuid.New()) }
func NewSyncConfigID() SyncConfigID { return SyncConfigID(uuid.New()) }
func NewSyncLogID() SyncLogID       { return SyncLogID(uuid.New()) }
func NewSyncItemID() SyncItemID     { return SyncItemID(uuid.New()) }
func NewAccountID() AccountID       { return AccountID(uuid.New()) }
func NewEntityID() EntityID         { return EntityID(uuid.New()) }
func NewLinkID() LinkID             { return LinkID(uuid.New()) }
func NewContractID() ContractID     { return ContractID(uuid.New()) }
func NewOperationID() OperationID   { return OperationID(uuid.New()) }

// parseUUID enforces the shared invariant: ids must be valid, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseSystemID(raw string) (SystemID, error) {
	parsed, err := parseUUID(raw)
	return SystemID(parsed), err
}

func ParseSyncConfigID(raw string) (SyncConfigID, error) {
	parsed, err := parseUUID(raw)
	return SyncConfigID(parsed), err
}

func ParseSyncLogID(raw string) (SyncLogID, error) {
	parsed, err := parseUUID(raw)
	return SyncLogID(parsed), err
}

func ParseSyncItemID(raw string) (SyncItemID, error) {
	parsed, err := parseUUID(raw)
	return SyncItemID(parsed), err
}

func ParseAccountID(raw string) (AccountID, error) {
	parsed, err := parseUUID(raw)
	return AccountID(parsed), err
}

func ParseEntityID(raw string) (EntityID, error) {
	parsed, err := parseUUID(raw)
	return EntityID(parsed), err
}
