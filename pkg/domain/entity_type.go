package domain

import dErrors "idsync/pkg/domain-errors"

// EntityType identifies the kind of local domain object a sync run targets.
type EntityType string

const (
	EntityTypeIdentity EntityType = "IDENTITY"
	EntityTypeRole     EntityType = "ROLE"
	EntityTypeTreeNode EntityType = "TREE"
	EntityTypeContract EntityType = "CONTRACT"
)

func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeIdentity, EntityTypeRole, EntityTypeTreeNode, EntityTypeContract:
		return true
	}
	return false
}

func ParseEntityType(raw string) (EntityType, error) {
	t := EntityType(raw)
	if !t.Valid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown entity type: "+raw)
	}
	return t, nil
}
