package models

import (
	"time"

	id "idsync/pkg/domain"
)

// Situation classifies one reconciliation item.
type Situation string

const (
	SituationLinked         Situation = "LINKED"
	SituationUnlinked       Situation = "UNLINKED"
	SituationMissingEntity  Situation = "MISSING_ENTITY"
	SituationMissingAccount Situation = "MISSING_ACCOUNT"
)

func (s Situation) Valid() bool {
	switch s {
	case SituationLinked, SituationUnlinked, SituationMissingEntity, SituationMissingAccount:
		return true
	}
	return false
}

// Per-situation action enums. Each situation gets its own type so an invalid
// situation/action pairing cannot compile.

type LinkedAction string

const (
	LinkedUpdateEntity      LinkedAction = "UPDATE_ENTITY"
	LinkedUpdateAccount     LinkedAction = "UPDATE_ACCOUNT"
	LinkedUnlink            LinkedAction = "UNLINK"
	LinkedIgnore            LinkedAction = "IGNORE"
	LinkedIgnoreAndDoNotLog LinkedAction = "IGNORE_AND_DO_NOT_LOG"
)

func (a LinkedAction) Valid() bool {
	switch a {
	case LinkedUpdateEntity, LinkedUpdateAccount, LinkedUnlink, LinkedIgnore, LinkedIgnoreAndDoNotLog:
		return true
	}
	return false
}

type UnlinkedAction string

const (
	UnlinkedLink                 UnlinkedAction = "LINK"
	UnlinkedLinkAndUpdateAccount UnlinkedAction = "LINK_AND_UPDATE_ACCOUNT"
	UnlinkedLinkAndUpdateEntity  UnlinkedAction = "LINK_AND_UPDATE_ENTITY"
	UnlinkedIgnore               UnlinkedAction = "IGNORE"
	UnlinkedIgnoreAndDoNotLog    UnlinkedAction = "IGNORE_AND_DO_NOT_LOG"
)

func (a UnlinkedAction) Valid() bool {
	switch a {
	case UnlinkedLink, UnlinkedLinkAndUpdateAccount, UnlinkedLinkAndUpdateEntity,
		UnlinkedIgnore, UnlinkedIgnoreAndDoNotLog:
		return true
	}
	return false
}

type MissingEntityAction string

const (
	MissingEntityCreateEntity      MissingEntityAction = "CREATE_ENTITY"
	MissingEntityIgnore            MissingEntityAction = "IGNORE"
	MissingEntityIgnoreAndDoNotLog MissingEntityAction = "IGNORE_AND_DO_NOT_LOG"
)

func (a MissingEntityAction) Valid() bool {
	switch a {
	case MissingEntityCreateEntity, MissingEntityIgnore, MissingEntityIgnoreAndDoNotLog:
		return true
	}
	return false
}

type MissingAccountAction string

const (
	MissingAccountCreateAccount     MissingAccountAction = "CREATE_ACCOUNT"
	MissingAccountDeleteEntity      MissingAccountAction = "DELETE_ENTITY"
	MissingAccountUnlink            MissingAccountAction = "UNLINK"
	MissingAccountIgnore            MissingAccountAction = "IGNORE"
	MissingAccountIgnoreAndDoNotLog MissingAccountAction = "IGNORE_AND_DO_NOT_LOG"
)

func (a MissingAccountAction) Valid() bool {
	switch a {
	case MissingAccountCreateAccount, MissingAccountDeleteEntity, MissingAccountUnlink,
		MissingAccountIgnore, MissingAccountIgnoreAndDoNotLog:
		return true
	}
	return false
}

// SyncConfig is one synchronization definition. Immutable per run except the
// Running flag, which is flipped with an atomic compare-and-set by the store.
type SyncConfig struct {
	ID         id.SyncConfigID
	Name       string
	SystemID   id.SystemID
	EntityType id.EntityType

	// CorrelationAttribute is the remote attribute matched against local
	// entity attributes of the same name when no link exists yet.
	CorrelationAttribute string

	// Reconciliation enables the missing-account sweep that treats the remote
	// system as source of truth for detecting deleted accounts.
	Reconciliation bool

	Enabled bool
	Running bool

	LinkedAction         LinkedAction
	UnlinkedAction       UnlinkedAction
	MissingEntityAction  MissingEntityAction
	MissingAccountAction MissingAccountAction

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the config is complete enough to run.
func (c *SyncConfig) Validate() error {
	switch {
	case c.Name == "":
		return errInvalid("name is required")
	case !c.EntityType.Valid():
		return errInvalid("unknown entity type")
	case c.CorrelationAttribute == "":
		return errInvalid("correlation attribute is required")
	case !c.LinkedAction.Valid():
		return errInvalid("unknown linked action")
	case !c.UnlinkedAction.Valid():
		return errInvalid("unknown unlinked action")
	case !c.MissingEntityAction.Valid():
		return errInvalid("unknown missing-entity action")
	case !c.MissingAccountAction.Valid():
		return errInvalid("unknown missing-account action")
	}
	return nil
}
