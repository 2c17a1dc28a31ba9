package account

import (
	"context"

	id "idsync/pkg/domain"
)

// EntityStore persists local domain objects.
type EntityStore interface {
	Create(ctx context.Context, entity *Entity) error
	Get(ctx context.Context, entityID id.EntityID) (*Entity, error)
	Update(ctx context.Context, entity *Entity) error
	Delete(ctx context.Context, entityID id.EntityID) error
	// FindByAttribute correlates remote items to local entities. More than one
	// result means the correlation attribute is ambiguous.
	FindByAttribute(ctx context.Context, entityType id.EntityType, name, value string) ([]*Entity, error)
}

// SystemStore persists target system definitions.
type SystemStore interface {
	Create(ctx context.Context, system *System) error
	Get(ctx context.Context, systemID id.SystemID) (*System, error)
}

// AccountStore persists local representations of remote records.
type AccountStore interface {
	Create(ctx context.Context, acc *Account) error
	Get(ctx context.Context, accountID id.AccountID) (*Account, error)
	Delete(ctx context.Context, accountID id.AccountID) error
	FindByUID(ctx context.Context, systemID id.SystemID, uid string) (*Account, error)
	ListBySystem(ctx context.Context, systemID id.SystemID) ([]*Account, error)
}

// LinkStore persists account-entity links.
type LinkStore interface {
	Create(ctx context.Context, link *Link) error
	FindByAccount(ctx context.Context, accountID id.AccountID) (*Link, error)
	FindByEntity(ctx context.Context, entityID id.EntityID) ([]*Link, error)
	Delete(ctx context.Context, linkID id.LinkID) error
}

// ContractStore persists identity contracts and answers subordinate queries.
type ContractStore interface {
	Create(ctx context.Context, contract *Contract) error
	Get(ctx context.Context, contractID id.ContractID) (*Contract, error)
	Delete(ctx context.Context, contractID id.ContractID) error
	ListByIdentity(ctx context.Context, identityID id.EntityID) ([]*Contract, error)
	// StreamSubordinates feeds the identities managed by managerID to fn in
	// batches of at most batchSize, bounding the working set for managers with
	// many reports.
	StreamSubordinates(ctx context.Context, managerID id.EntityID, batchSize int, fn func(batch []id.EntityID) error) error
}
