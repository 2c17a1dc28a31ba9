package config

import (
	"context"
	"sort"
	"sync"
	"time"

	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// MemoryStore keeps sync configs in memory. The acquire/release pair mirrors
// the conditional-update semantics of the postgres store so the runner's
// single-writer guarantee holds in both modes.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[id.SyncConfigID]*models.SyncConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[id.SyncConfigID]*models.SyncConfig)}
}

func (s *MemoryStore) Create(_ context.Context, cfg *models.SyncConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[cfg.ID]; exists {
		return sentinel.ErrConflict
	}
	now := time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = cfg.CreatedAt
	copied := *cfg
	s.configs[cfg.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, configID id.SyncConfigID) (*models.SyncConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[configID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *cfg
	return &copied, nil
}

func (s *MemoryStore) Update(_ context.Context, cfg *models.SyncConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[cfg.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cfg.UpdatedAt = time.Now()
	copied := *cfg
	s.configs[cfg.ID] = &copied
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, configID id.SyncConfigID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[configID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.configs, configID)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.SyncConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]*models.SyncConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		copied := *cfg
		configs = append(configs, &copied)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}

// TryAcquireRun flips the running flag in a single guarded step. Returns
// sentinel.ErrConflict when a run is already active, closing the
// read-then-write race between duplicate start attempts.
func (s *MemoryStore) TryAcquireRun(_ context.Context, configID id.SyncConfigID) (*models.SyncConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[configID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !cfg.Enabled {
		return nil, sentinel.ErrInvalidState
	}
	if cfg.Running {
		return nil, sentinel.ErrConflict
	}
	cfg.Running = true
	cfg.UpdatedAt = time.Now()
	copied := *cfg
	return &copied, nil
}

// ReleaseRun clears the running flag. Idempotent: releasing an idle config is
// not an error, so end-of-run cleanup can always call it.
func (s *MemoryStore) ReleaseRun(_ context.Context, configID id.SyncConfigID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[configID]
	if !ok {
		return sentinel.ErrNotFound
	}
	cfg.Running = false
	cfg.UpdatedAt = time.Now()
	return nil
}

// ListRunning returns configs stuck in the running state; startup recovery
// uses it to re-queue runs interrupted by a process restart.
func (s *MemoryStore) ListRunning(_ context.Context) ([]*models.SyncConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var running []*models.SyncConfig
	for _, cfg := range s.configs {
		if cfg.Running {
			copied := *cfg
			running = append(running, &copied)
		}
	}
	sort.Slice(running, func(i, j int) bool { return running[i].Name < running[j].Name })
	return running, nil
}
