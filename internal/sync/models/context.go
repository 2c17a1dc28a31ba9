package models

import id "idsync/pkg/domain"

// ItemContext is the per-item working state passed through the reconciliation
// pipeline. Created fresh for each processed UID, discarded once the item's
// action has completed and been logged.
type ItemContext struct {
	SyncConfigID id.SyncConfigID
	SyncLogID    id.SyncLogID
	SystemID     id.SystemID
	EntityType   id.EntityType

	UID        string
	Attributes map[string]string

	// Resolution results, filled by the situation resolver.
	Situation Situation
	AccountID *id.AccountID
	EntityID  *id.EntityID
}
