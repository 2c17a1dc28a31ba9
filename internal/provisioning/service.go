// Package provisioning pushes local entity state to target systems as
// create/update/delete operations, running each operation through the ordered
// event processor chain.
package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idsync/internal/account"
	"idsync/internal/provisioning/event"
	"idsync/internal/provisioning/metrics"
	"idsync/internal/provisioning/models"
	id "idsync/pkg/domain"
	"idsync/pkg/runcontext"
)

// OperationStore persists provisioning operations.
type OperationStore interface {
	Save(ctx context.Context, op *models.Operation) error
	Get(ctx context.Context, opID id.OperationID) (*models.Operation, error)
	ListBySystem(ctx context.Context, systemID id.SystemID) ([]*models.Operation, error)
	ListByEntity(ctx context.Context, entityID id.EntityID) ([]*models.Operation, error)
}

// Service creates operations and drives them through the processor chain.
// Each operation is its own unit of work: a chain failure for one UID does not
// roll back sibling operations.
type Service struct {
	store    OperationStore
	registry *event.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics

	entities account.EntityStore
	links    account.LinkStore
	accounts account.AccountStore
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEntityFlow wires the stores ProvisionEntity reads linked accounts from.
func WithEntityFlow(entities account.EntityStore, links account.LinkStore, accounts account.AccountStore) Option {
	return func(s *Service) {
		s.entities = entities
		s.links = links
		s.accounts = accounts
	}
}

func New(store OperationStore, registry *event.Registry, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("operation store is required")
	}
	if registry == nil {
		return nil, errors.New("event registry is required")
	}
	svc := &Service{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Request describes one provisioning intent.
type Request struct {
	Type       models.OperationType
	SystemID   id.SystemID
	EntityID   *id.EntityID
	EntityType id.EntityType
	UID        string
	Attributes map[string]string
}

// Provision persists a new operation and runs the chain for it synchronously.
// Returns the operation in its terminal (or suspended) state.
func (s *Service) Provision(ctx context.Context, req Request) (*models.Operation, error) {
	op := &models.Operation{
		ID:         id.NewOperationID(),
		Type:       req.Type,
		SystemID:   req.SystemID,
		EntityID:   req.EntityID,
		EntityType: req.EntityType,
		UID:        req.UID,
		Attributes: req.Attributes,
		Result:     models.ResultCreated,
		CreatedAt:  time.Now(),
	}
	if err := s.store.Save(ctx, op); err != nil {
		return nil, err
	}

	ev := &event.Event{
		ID:            op.ID,
		Type:          event.Type(op.Type),
		Content:       op,
		TransactionID: runcontext.TransactionID(ctx),
	}

	if _, err := s.registry.Process(ctx, ev); err != nil {
		op.Result = models.ResultException
		op.ResultMessage = err.Error()
		if saveErr := s.store.Save(ctx, op); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to persist operation exception state",
				"operation_id", op.ID.String(), "error", saveErr)
		}
		s.observe(op)
		return op, err
	}

	s.observe(op)
	return op, nil
}

// ProvisionEntity pushes the current state of an entity to every account it
// is linked to, one UPDATE operation per account. Chain failures are collected
// per account so one broken system does not starve the rest.
func (s *Service) ProvisionEntity(ctx context.Context, entityID id.EntityID) error {
	if s.entities == nil || s.links == nil || s.accounts == nil {
		return errors.New("entity flow stores are not configured")
	}

	entity, err := s.entities.Get(ctx, entityID)
	if err != nil {
		return err
	}
	linked, err := s.links.FindByEntity(ctx, entityID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, link := range linked {
		acc, err := s.accounts.Get(ctx, link.AccountID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_, err = s.Provision(ctx, Request{
			Type:       models.OperationUpdate,
			SystemID:   acc.SystemID,
			EntityID:   &entity.ID,
			EntityType: entity.Type,
			UID:        acc.UID,
			Attributes: entity.Attributes,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "entity provisioning failed on account",
				"entity_id", entityID.String(),
				"account_id", acc.ID.String(),
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Operations exposes the store for read paths (handlers, tests).
func (s *Service) Operations() OperationStore { return s.store }

func (s *Service) observe(op *models.Operation) {
	if s.metrics != nil {
		s.metrics.OperationProcessed(string(op.Type), string(op.Result))
	}
}
