// Package resolver classifies one reconciliation item into its situation:
// does the remote UID map to a local account, and does correlation find a
// local entity for it.
package resolver

import (
	"context"
	"sort"
	"strconv"

	"idsync/internal/account"
	"idsync/internal/sync/models"
	dErrors "idsync/pkg/domain-errors"
)

// CorrelationStrategy decides which entity wins when the correlation
// attribute matches more than one. The default is strict: ambiguity is an
// item error, never a silent pick.
type CorrelationStrategy interface {
	Select(matches []*account.Entity) (*account.Entity, error)
}

// StrictStrategy fails on ambiguous correlation.
type StrictStrategy struct{}

func (StrictStrategy) Select(matches []*account.Entity) (*account.Entity, error) {
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, dErrors.New(dErrors.CodeConflict, "correlation matched more than one entity").
			WithParam("matches", strconv.Itoa(len(matches)))
	}
}

// FirstMatchStrategy resolves ambiguity by picking the lowest entity id, so
// repeated runs pick the same winner.
type FirstMatchStrategy struct{}

func (FirstMatchStrategy) Select(matches []*account.Entity) (*account.Entity, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	sorted := append([]*account.Entity(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted[0], nil
}

// Resolver determines the situation for each remote item.
type Resolver struct {
	accounts account.AccountStore
	links    account.LinkStore
	entities account.EntityStore
	strategy CorrelationStrategy
}

type Option func(*Resolver)

// WithStrategy overrides the ambiguity handling.
func WithStrategy(s CorrelationStrategy) Option {
	return func(r *Resolver) { r.strategy = s }
}

func New(accounts account.AccountStore, links account.LinkStore, entities account.EntityStore, opts ...Option) *Resolver {
	r := &Resolver{
		accounts: accounts,
		links:    links,
		entities: entities,
		strategy: StrictStrategy{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fills itemCtx.Situation plus the account/entity references the
// executor needs. Classification:
//
//	account exists, link exists      -> LINKED
//	account exists, no link          -> UNLINKED (correlated) or MISSING_ENTITY
//	no account, correlation matches  -> UNLINKED
//	no account, no correlation match -> MISSING_ENTITY
//
// MISSING_ACCOUNT is never produced here; it is detected by the
// reconciliation sweep over local accounts after the remote iteration.
func (r *Resolver) Resolve(ctx context.Context, cfg *models.SyncConfig, itemCtx *models.ItemContext) error {
	acc, err := r.accounts.FindByUID(ctx, itemCtx.SystemID, itemCtx.UID)
	if err != nil {
		return err
	}

	if acc != nil {
		itemCtx.AccountID = &acc.ID
		link, err := r.links.FindByAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		if link != nil {
			itemCtx.Situation = models.SituationLinked
			itemCtx.EntityID = &link.EntityID
			return nil
		}
	}

	entity, err := r.correlate(ctx, cfg, itemCtx)
	if err != nil {
		return err
	}
	if entity != nil {
		itemCtx.EntityID = &entity.ID
		itemCtx.Situation = models.SituationUnlinked
		return nil
	}

	itemCtx.Situation = models.SituationMissingEntity
	return nil
}

// correlate finds the local entity the remote item belongs to, matching the
// configured correlation attribute against the item's value for it.
func (r *Resolver) correlate(ctx context.Context, cfg *models.SyncConfig, itemCtx *models.ItemContext) (*account.Entity, error) {
	value, ok := itemCtx.Attributes[cfg.CorrelationAttribute]
	if !ok || value == "" {
		return nil, nil
	}
	matches, err := r.entities.FindByAttribute(ctx, itemCtx.EntityType, cfg.CorrelationAttribute, value)
	if err != nil {
		return nil, err
	}
	entity, err := r.strategy.Select(matches)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "correlation failed").
			WithParam("uid", itemCtx.UID).
			WithParam("attribute", cfg.CorrelationAttribute)
	}
	return entity, nil
}
