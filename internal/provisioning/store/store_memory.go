package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"idsync/internal/provisioning/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// MemoryStore keeps provisioning operations in memory.
type MemoryStore struct {
	mu  sync.RWMutex
	ops map[id.OperationID]*models.Operation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[id.OperationID]*models.Operation)}
}

// Save inserts or updates an operation.
func (s *MemoryStore) Save(_ context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	copied := cloneOperation(op)
	s.ops[op.ID] = copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, opID id.OperationID) (*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[opID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneOperation(op), nil
}

func (s *MemoryStore) ListBySystem(_ context.Context, systemID id.SystemID) ([]*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ops []*models.Operation
	for _, op := range s.ops {
		if op.SystemID == systemID {
			ops = append(ops, cloneOperation(op))
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].CreatedAt.Before(ops[j].CreatedAt) })
	return ops, nil
}

func (s *MemoryStore) ListByEntity(_ context.Context, entityID id.EntityID) ([]*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ops []*models.Operation
	for _, op := range s.ops {
		if op.EntityID != nil && *op.EntityID == entityID {
			ops = append(ops, cloneOperation(op))
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].CreatedAt.Before(ops[j].CreatedAt) })
	return ops, nil
}

func cloneOperation(op *models.Operation) *models.Operation {
	copied := *op
	if op.Attributes != nil {
		copied.Attributes = make(map[string]string, len(op.Attributes))
		for k, v := range op.Attributes {
			copied.Attributes[k] = v
		}
	}
	return &copied
}
