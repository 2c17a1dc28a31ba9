package account

import (
	"time"

	id "idsync/pkg/domain"
)

// Entity is a local domain object (identity, role, tree node, contract slice)
// that may be provisioned to target systems.
type Entity struct {
	ID           id.EntityID
	Type         id.EntityType
	Name         string
	Attributes   map[string]string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// System is a remote target system records are synchronized with.
type System struct {
	ID       id.SystemID
	Name     string
	Readonly bool
	Disabled bool
}

// Account is the local representation of a remote system's record.
type Account struct {
	ID         id.AccountID
	SystemID   id.SystemID
	UID        string
	EntityType id.EntityType
	CreatedAt  time.Time
}

// Link connects an Account to an Entity. Its absence is what makes a
// reconciliation item UNLINKED.
type Link struct {
	ID        id.LinkID
	AccountID id.AccountID
	EntityID  id.EntityID
	CreatedAt time.Time
}

// Contract ties an identity to an organizational position; the manager
// reference is what subordinate cascades walk.
type Contract struct {
	ID         id.ContractID
	IdentityID id.EntityID
	ManagerID  *id.EntityID
	ValidFrom  *time.Time
	ValidTill  *time.Time
	Main       bool
}
