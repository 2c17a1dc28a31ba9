package provisioning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"idsync/internal/account"
	"idsync/internal/provisioning/event"
	"idsync/internal/provisioning/models"
	provstore "idsync/internal/provisioning/store"
	id "idsync/pkg/domain"
)

// markingProcessor stamps every operation it sees executed, standing in for
// the realization step.
type markingProcessor struct {
	err   error
	calls int
}

func (p *markingProcessor) Name() string { return "marking" }

func (p *markingProcessor) Order() int { return 0 }

func (p *markingProcessor) EventTypes() []event.Type {
	return []event.Type{event.TypeCreate, event.TypeUpdate, event.TypeDelete}
}

func (p *markingProcessor) Conditional(_ context.Context, ev *event.Event) bool {
	_, ok := ev.Content.(*models.Operation)
	return ok
}

func (p *markingProcessor) Process(_ context.Context, ev *event.Event) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	op := ev.Content.(*models.Operation)
	op.Result = models.ResultExecuted
	return nil
}

type ProvisioningServiceSuite struct {
	suite.Suite
	ctx context.Context

	store     *provstore.MemoryStore
	registry  *event.Registry
	processor *markingProcessor

	entities *account.MemoryEntityStore
	links    *account.MemoryLinkStore
	accounts *account.MemoryAccountStore

	service *Service
}

func TestProvisioningServiceSuite(t *testing.T) {
	suite.Run(t, new(ProvisioningServiceSuite))
}

func (s *ProvisioningServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = provstore.NewMemoryStore()
	s.registry = event.NewRegistry()
	s.processor = &markingProcessor{}
	s.registry.Register(s.processor)

	s.entities = account.NewMemoryEntityStore()
	s.links = account.NewMemoryLinkStore()
	s.accounts = account.NewMemoryAccountStore()

	var err error
	s.service, err = New(s.store, s.registry,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithEntityFlow(s.entities, s.links, s.accounts),
	)
	s.Require().NoError(err)
}

func (s *ProvisioningServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.registry)
		s.Error(err)
	})

	s.Run("nil registry returns error", func() {
		_, err := New(s.store, nil)
		s.Error(err)
	})
}

func (s *ProvisioningServiceSuite) TestProvision() {
	s.Run("runs the chain and persists the operation", func() {
		op, err := s.service.Provision(s.ctx, Request{
			Type:     models.OperationCreate,
			SystemID: id.NewSystemID(),
			UID:      "alice",
		})
		s.Require().NoError(err)
		s.Equal(models.ResultExecuted, op.Result)
		s.Equal(1, s.processor.calls)

		saved, err := s.store.Get(s.ctx, op.ID)
		s.Require().NoError(err)
		s.Equal("alice", saved.UID)
	})

	s.Run("chain failure lands the operation in exception state", func() {
		s.processor.err = errors.New("target unreachable")
		defer func() { s.processor.err = nil }()

		op, err := s.service.Provision(s.ctx, Request{
			Type:     models.OperationUpdate,
			SystemID: id.NewSystemID(),
			UID:      "bob",
		})
		s.Require().Error(err)
		s.Equal(models.ResultException, op.Result)
		s.Contains(op.ResultMessage, "target unreachable")

		saved, err := s.store.Get(s.ctx, op.ID)
		s.Require().NoError(err)
		s.Equal(models.ResultException, saved.Result)
	})
}

func (s *ProvisioningServiceSuite) TestProvisionEntity() {
	seedLinkedAccount := func(entity *account.Entity, systemID id.SystemID, uid string) {
		acc := &account.Account{
			ID:         id.NewAccountID(),
			SystemID:   systemID,
			UID:        uid,
			EntityType: entity.Type,
		}
		s.Require().NoError(s.accounts.Create(s.ctx, acc))
		link := &account.Link{ID: id.NewLinkID(), AccountID: acc.ID, EntityID: entity.ID}
		s.Require().NoError(s.links.Create(s.ctx, link))
	}

	s.Run("issues one update per linked account", func() {
		entity := &account.Entity{
			ID:         id.NewEntityID(),
			Type:       id.EntityTypeIdentity,
			Name:       "carol",
			Attributes: map[string]string{"username": "carol"},
		}
		s.Require().NoError(s.entities.Create(s.ctx, entity))
		seedLinkedAccount(entity, id.NewSystemID(), "carol@ldap")
		seedLinkedAccount(entity, id.NewSystemID(), "carol@crm")

		s.Require().NoError(s.service.ProvisionEntity(s.ctx, entity.ID))

		ops, err := s.store.ListByEntity(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Len(ops, 2)
		uids := map[string]bool{}
		for _, op := range ops {
			s.Equal(models.OperationUpdate, op.Type)
			uids[op.UID] = true
		}
		s.True(uids["carol@ldap"])
		s.True(uids["carol@crm"])
	})

	s.Run("entity without links provisions nothing", func() {
		entity := &account.Entity{ID: id.NewEntityID(), Type: id.EntityTypeIdentity, Name: "dave"}
		s.Require().NoError(s.entities.Create(s.ctx, entity))

		before := s.processor.calls
		s.Require().NoError(s.service.ProvisionEntity(s.ctx, entity.ID))
		s.Equal(before, s.processor.calls)
	})

	s.Run("unknown entity is an error", func() {
		s.Error(s.service.ProvisionEntity(s.ctx, id.NewEntityID()))
	})
}
