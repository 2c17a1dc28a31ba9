// Package executor applies the configured action for a resolved
// reconciliation item: linking, entity creation and updates, unlinking, and
// the provisioning pushes those mutations trigger.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"idsync/internal/account"
	"idsync/internal/notification/uniform"
	"idsync/internal/provisioning"
	provmodels "idsync/internal/provisioning/models"
	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
	"idsync/pkg/runcontext"
)

// Provisioner is the subset of the provisioning service the executor pushes
// changes through.
type Provisioner interface {
	Provision(ctx context.Context, req provisioning.Request) (*provmodels.Operation, error)
	ProvisionEntity(ctx context.Context, entityID id.EntityID) error
}

// Outcome is what one action application produced, consumed by the run loop
// for the item log and counters. Logged=false only for IGNORE_AND_DO_NOT_LOG.
type Outcome struct {
	Action  string
	Result  models.ItemResult
	Message string
	Logged  bool
}

// Executor applies per-situation actions for a single sync config.
type Executor struct {
	cfg *models.SyncConfig

	entities account.EntityStore
	accounts account.AccountStore
	links    account.LinkStore

	provisioner Provisioner
	passwords   uniform.Buffer
	logger      *slog.Logger
}

// Deps carries the collaborators an Executor needs; the cache constructs one
// executor per config from a single Deps value.
type Deps struct {
	Entities    account.EntityStore
	Accounts    account.AccountStore
	Links       account.LinkStore
	Provisioner Provisioner
	Passwords   uniform.Buffer
	Logger      *slog.Logger
}

func New(cfg *models.SyncConfig, deps Deps) *Executor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		cfg:         cfg,
		entities:    deps.Entities,
		accounts:    deps.Accounts,
		links:       deps.Links,
		provisioner: deps.Provisioner,
		passwords:   deps.Passwords,
		logger:      logger,
	}
}

// Execute dispatches on the resolved situation. Returned errors are item
// errors: the caller records them and moves on, they never abort the run.
func (e *Executor) Execute(ctx context.Context, itemCtx *models.ItemContext) (Outcome, error) {
	switch itemCtx.Situation {
	case models.SituationLinked:
		return e.executeLinked(ctx, itemCtx)
	case models.SituationUnlinked:
		return e.executeUnlinked(ctx, itemCtx)
	case models.SituationMissingEntity:
		return e.executeMissingEntity(ctx, itemCtx)
	case models.SituationMissingAccount:
		return e.executeMissingAccount(ctx, itemCtx)
	default:
		return Outcome{}, dErrors.New(dErrors.CodeInternal, "unknown situation").
			WithParam("situation", string(itemCtx.Situation))
	}
}

func (e *Executor) executeLinked(ctx context.Context, itemCtx *models.ItemContext) (Outcome, error) {
	action := e.cfg.LinkedAction
	out := Outcome{Action: string(action), Result: models.ItemResultSuccess, Logged: true}

	switch action {
	case models.LinkedUpdateEntity:
		if err := e.updateEntityFromItem(ctx, *itemCtx.EntityID, itemCtx.Attributes); err != nil {
			return out, err
		}
		out.Message = "entity updated from remote item"
	case models.LinkedUpdateAccount:
		if err := e.provisioner.ProvisionEntity(ctx, *itemCtx.EntityID); err != nil {
			return out, err
		}
		out.Message = "entity state pushed to linked accounts"
	case models.LinkedUnlink:
		if err := e.unlink(ctx, *itemCtx.AccountID); err != nil {
			return out, err
		}
		out.Message = "link removed"
	case models.LinkedIgnore:
		out.Result = models.ItemResultIgnored
		out.Message = "linked item ignored"
	case models.LinkedIgnoreAndDoNotLog:
		out.Result = models.ItemResultIgnored
		out.Logged = false
	default:
		return out, dErrors.New(dErrors.CodeInvalidInput, "invalid linked action").
			WithParam("action", string(action))
	}
	return out, nil
}

func (e *Executor) executeUnlinked(ctx context.Context, itemCtx *models.ItemContext) (Outcome, error) {
	action := e.cfg.UnlinkedAction
	out := Outcome{Action: string(action), Result: models.ItemResultSuccess, Logged: true}

	switch action {
	case models.UnlinkedLink:
		if err := e.link(ctx, itemCtx); err != nil {
			return out, err
		}
		out.Message = "account linked to correlated entity"
	case models.UnlinkedLinkAndUpdateEntity:
		if err := e.link(ctx, itemCtx); err != nil {
			return out, err
		}
		if err := e.updateEntityFromItem(ctx, *itemCtx.EntityID, itemCtx.Attributes); err != nil {
			return out, err
		}
		out.Message = "account linked, entity updated from remote item"
	case models.UnlinkedLinkAndUpdateAccount:
		if err := e.link(ctx, itemCtx); err != nil {
			return out, err
		}
		if err := e.provisioner.ProvisionEntity(ctx, *itemCtx.EntityID); err != nil {
			return out, err
		}
		out.Message = "account linked, entity state pushed to it"
	case models.UnlinkedIgnore:
		out.Result = models.ItemResultIgnored
		out.Message = "unlinked item ignored"
	case models.UnlinkedIgnoreAndDoNotLog:
		out.Result = models.ItemResultIgnored
		out.Logged = false
	default:
		return out, dErrors.New(dErrors.CodeInvalidInput, "invalid unlinked action").
			WithParam("action", string(action))
	}
	return out, nil
}

func (e *Executor) executeMissingEntity(ctx context.Context, itemCtx *models.ItemContext) (Outcome, error) {
	action := e.cfg.MissingEntityAction
	out := Outcome{Action: string(action), Result: models.ItemResultSuccess, Logged: true}

	switch action {
	case models.MissingEntityCreateEntity:
		entityID, err := e.createEntity(ctx, itemCtx)
		if err != nil {
			return out, err
		}
		itemCtx.EntityID = &entityID
		if err := e.link(ctx, itemCtx); err != nil {
			return out, err
		}
		out.Message = "entity created and linked"
	case models.MissingEntityIgnore:
		out.Result = models.ItemResultIgnored
		out.Message = "missing entity ignored"
	case models.MissingEntityIgnoreAndDoNotLog:
		out.Result = models.ItemResultIgnored
		out.Logged = false
	default:
		return out, dErrors.New(dErrors.CodeInvalidInput, "invalid missing-entity action").
			WithParam("action", string(action))
	}
	return out, nil
}

func (e *Executor) executeMissingAccount(ctx context.Context, itemCtx *models.ItemContext) (Outcome, error) {
	action := e.cfg.MissingAccountAction
	out := Outcome{Action: string(action), Result: models.ItemResultSuccess, Logged: true}

	switch action {
	case models.MissingAccountCreateAccount:
		if err := e.recreateRemoteAccount(ctx, itemCtx); err != nil {
			return out, err
		}
		out.Message = "create operation issued for vanished remote account"
	case models.MissingAccountDeleteEntity:
		if err := e.deleteEntityCascade(ctx, itemCtx); err != nil {
			return out, err
		}
		out.Message = "entity and its account removed"
	case models.MissingAccountUnlink:
		if err := e.unlink(ctx, *itemCtx.AccountID); err != nil {
			return out, err
		}
		out.Message = "link removed for vanished remote account"
	case models.MissingAccountIgnore:
		out.Result = models.ItemResultIgnored
		out.Message = "missing account ignored"
	case models.MissingAccountIgnoreAndDoNotLog:
		out.Result = models.ItemResultIgnored
		out.Logged = false
	default:
		return out, dErrors.New(dErrors.CodeInvalidInput, "invalid missing-account action").
			WithParam("action", string(action))
	}
	return out, nil
}

// link ensures a local account row exists for the remote UID and creates the
// account-entity link. Idempotent when the account already exists.
func (e *Executor) link(ctx context.Context, itemCtx *models.ItemContext) error {
	if itemCtx.EntityID == nil {
		return dErrors.New(dErrors.CodeInternal, "link requires a resolved entity")
	}

	accountID := itemCtx.AccountID
	if accountID == nil {
		acc := &account.Account{
			ID:         id.NewAccountID(),
			SystemID:   itemCtx.SystemID,
			UID:        itemCtx.UID,
			EntityType: itemCtx.EntityType,
			CreatedAt:  time.Now(),
		}
		if err := e.accounts.Create(ctx, acc); err != nil {
			return fmt.Errorf("create account for %s: %w", itemCtx.UID, err)
		}
		accountID = &acc.ID
		itemCtx.AccountID = accountID
	}

	link := &account.Link{
		ID:        id.NewLinkID(),
		AccountID: *accountID,
		EntityID:  *itemCtx.EntityID,
		CreatedAt: time.Now(),
	}
	if err := e.links.Create(ctx, link); err != nil {
		return fmt.Errorf("create link for %s: %w", itemCtx.UID, err)
	}
	return nil
}

func (e *Executor) unlink(ctx context.Context, accountID id.AccountID) error {
	link, err := e.links.FindByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if link == nil {
		return nil
	}
	return e.links.Delete(ctx, link.ID)
}

func (e *Executor) updateEntityFromItem(ctx context.Context, entityID id.EntityID, attrs map[string]string) error {
	entity, err := e.entities.Get(ctx, entityID)
	if err != nil {
		return err
	}
	if entity.Attributes == nil {
		entity.Attributes = make(map[string]string, len(attrs))
	}
	for k, v := range attrs {
		entity.Attributes[k] = v
	}
	entity.UpdatedAt = time.Now()
	return e.entities.Update(ctx, entity)
}

// createEntity materializes a local entity from the remote item. Identities
// get a generated uniform password: the bcrypt hash lands on the entity, the
// plain text goes to the deferred handout buffer keyed by the run's
// transaction id.
func (e *Executor) createEntity(ctx context.Context, itemCtx *models.ItemContext) (id.EntityID, error) {
	name := itemCtx.Attributes[e.cfg.CorrelationAttribute]
	if name == "" {
		name = itemCtx.UID
	}
	entity := &account.Entity{
		ID:         id.NewEntityID(),
		Type:       itemCtx.EntityType,
		Name:       name,
		Attributes: copyAttrs(itemCtx.Attributes),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if itemCtx.EntityType == id.EntityTypeIdentity {
		password, err := uniform.GeneratePassword()
		if err != nil {
			return id.EntityID{}, err
		}
		hash, err := uniform.HashPassword(password)
		if err != nil {
			return id.EntityID{}, err
		}
		entity.PasswordHash = hash
		if e.passwords != nil {
			txID := runcontext.TransactionID(ctx)
			if err := e.passwords.Add(ctx, txID, entity.ID, password, itemCtx.SystemID.String()); err != nil {
				// Handout delivery is best effort, entity creation is not.
				e.logger.WarnContext(ctx, "uniform password buffering failed",
					"entity_id", entity.ID.String(), "error", err)
			}
		}
	}

	if err := e.entities.Create(ctx, entity); err != nil {
		return id.EntityID{}, fmt.Errorf("create entity for %s: %w", itemCtx.UID, err)
	}
	return entity.ID, nil
}

// recreateRemoteAccount issues a CREATE operation pushing the linked entity's
// state back to the system whose record disappeared.
func (e *Executor) recreateRemoteAccount(ctx context.Context, itemCtx *models.ItemContext) error {
	if itemCtx.EntityID == nil {
		return dErrors.New(dErrors.CodeInternal, "missing-account create requires a linked entity")
	}
	entity, err := e.entities.Get(ctx, *itemCtx.EntityID)
	if err != nil {
		return err
	}
	_, err = e.provisioner.Provision(ctx, provisioning.Request{
		Type:       provmodels.OperationCreate,
		SystemID:   itemCtx.SystemID,
		EntityID:   itemCtx.EntityID,
		EntityType: entity.Type,
		UID:        itemCtx.UID,
		Attributes: entity.Attributes,
	})
	return err
}

// deleteEntityCascade removes link, local account, and the entity itself.
func (e *Executor) deleteEntityCascade(ctx context.Context, itemCtx *models.ItemContext) error {
	if itemCtx.AccountID != nil {
		if err := e.unlink(ctx, *itemCtx.AccountID); err != nil {
			return err
		}
		if err := e.accounts.Delete(ctx, *itemCtx.AccountID); err != nil {
			return err
		}
	}
	if itemCtx.EntityID != nil {
		if err := e.entities.Delete(ctx, *itemCtx.EntityID); err != nil {
			return err
		}
	}
	return nil
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
