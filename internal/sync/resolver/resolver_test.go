package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"idsync/internal/account"
	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
)

type ResolverSuite struct {
	suite.Suite
	ctx context.Context

	entities *account.MemoryEntityStore
	accounts *account.MemoryAccountStore
	links    *account.MemoryLinkStore

	systemID id.SystemID
	cfg      *models.SyncConfig
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.entities = account.NewMemoryEntityStore()
	s.accounts = account.NewMemoryAccountStore()
	s.links = account.NewMemoryLinkStore()
	s.systemID = id.NewSystemID()
	s.cfg = &models.SyncConfig{
		ID:                   id.NewSyncConfigID(),
		SystemID:             s.systemID,
		EntityType:           id.EntityTypeIdentity,
		CorrelationAttribute: "username",
	}
}

func (s *ResolverSuite) newItemCtx(uid string, attrs map[string]string) *models.ItemContext {
	return &models.ItemContext{
		SyncConfigID: s.cfg.ID,
		SystemID:     s.systemID,
		EntityType:   id.EntityTypeIdentity,
		UID:          uid,
		Attributes:   attrs,
	}
}

func (s *ResolverSuite) seedEntity(username string) *account.Entity {
	entity := &account.Entity{
		ID:         id.NewEntityID(),
		Type:       id.EntityTypeIdentity,
		Name:       username,
		Attributes: map[string]string{"username": username},
	}
	s.Require().NoError(s.entities.Create(s.ctx, entity))
	return entity
}

func (s *ResolverSuite) seedAccount(uid string) *account.Account {
	acc := &account.Account{
		ID:         id.NewAccountID(),
		SystemID:   s.systemID,
		UID:        uid,
		EntityType: id.EntityTypeIdentity,
	}
	s.Require().NoError(s.accounts.Create(s.ctx, acc))
	return acc
}

func (s *ResolverSuite) TestResolve() {
	res := New(s.accounts, s.links, s.entities)

	s.Run("account with link resolves LINKED", func() {
		entity := s.seedEntity("alice")
		acc := s.seedAccount("alice")
		link := &account.Link{ID: id.NewLinkID(), AccountID: acc.ID, EntityID: entity.ID}
		s.Require().NoError(s.links.Create(s.ctx, link))

		itemCtx := s.newItemCtx("alice", map[string]string{"username": "alice"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, itemCtx))
		s.Equal(models.SituationLinked, itemCtx.Situation)
		s.Require().NotNil(itemCtx.AccountID)
		s.Equal(acc.ID, *itemCtx.AccountID)
		s.Require().NotNil(itemCtx.EntityID)
		s.Equal(entity.ID, *itemCtx.EntityID)
	})

	s.Run("account without link but correlated entity resolves UNLINKED", func() {
		entity := s.seedEntity("bob")
		acc := s.seedAccount("bob")

		itemCtx := s.newItemCtx("bob", map[string]string{"username": "bob"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, itemCtx))
		s.Equal(models.SituationUnlinked, itemCtx.Situation)
		s.Require().NotNil(itemCtx.AccountID)
		s.Equal(acc.ID, *itemCtx.AccountID)
		s.Require().NotNil(itemCtx.EntityID)
		s.Equal(entity.ID, *itemCtx.EntityID)
	})

	s.Run("no account and correlated entity resolves UNLINKED", func() {
		entity := s.seedEntity("carol")

		itemCtx := s.newItemCtx("carol", map[string]string{"username": "carol"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, itemCtx))
		s.Equal(models.SituationUnlinked, itemCtx.Situation)
		s.Nil(itemCtx.AccountID)
		s.Require().NotNil(itemCtx.EntityID)
		s.Equal(entity.ID, *itemCtx.EntityID)
	})

	s.Run("no account and no match resolves MISSING_ENTITY", func() {
		itemCtx := s.newItemCtx("nobody", map[string]string{"username": "nobody"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, itemCtx))
		s.Equal(models.SituationMissingEntity, itemCtx.Situation)
		s.Nil(itemCtx.EntityID)
	})

	s.Run("missing correlation attribute resolves MISSING_ENTITY", func() {
		s.seedEntity("dana")
		itemCtx := s.newItemCtx("dana", map[string]string{"mail": "dana@example.com"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, itemCtx))
		s.Equal(models.SituationMissingEntity, itemCtx.Situation)
	})

	s.Run("entity type mismatch does not correlate", func() {
		role := &account.Entity{
			ID:         id.NewEntityID(),
			Type:       id.EntityTypeRole,
			Name:       "erin",
			Attributes: map[string]string{"username": "erin"},
		}
		s.Require().NoError(s.entities.Create(s.ctx, role))

		itemCtx := s.newItemCtx("erin", map[string]string{"username": "erin"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, itemCtx))
		s.Equal(models.SituationMissingEntity, itemCtx.Situation)
	})
}

func (s *ResolverSuite) TestAmbiguousCorrelation() {
	duplicate := func(username string) {
		for range 2 {
			entity := &account.Entity{
				ID:         id.NewEntityID(),
				Type:       id.EntityTypeIdentity,
				Name:       username,
				Attributes: map[string]string{"username": username},
			}
			s.Require().NoError(s.entities.Create(s.ctx, entity))
		}
	}

	s.Run("strict strategy fails the item", func() {
		duplicate("twin")
		res := New(s.accounts, s.links, s.entities)

		itemCtx := s.newItemCtx("twin", map[string]string{"username": "twin"})
		err := res.Resolve(s.ctx, s.cfg, itemCtx)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("first-match strategy picks the same winner every time", func() {
		duplicate("clone")
		res := New(s.accounts, s.links, s.entities, WithStrategy(FirstMatchStrategy{}))

		first := s.newItemCtx("clone", map[string]string{"username": "clone"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, first))
		s.Equal(models.SituationUnlinked, first.Situation)
		s.Require().NotNil(first.EntityID)

		second := s.newItemCtx("clone", map[string]string{"username": "clone"})
		s.Require().NoError(res.Resolve(s.ctx, s.cfg, second))
		s.Require().NotNil(second.EntityID)
		s.Equal(*first.EntityID, *second.EntityID)
	})
}
