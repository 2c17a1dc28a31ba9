package executor

import (
	"sync"

	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
)

// Cache holds one executor per sync config. Key space is bounded by the
// number of configured syncs; entries are invalidated when a config is
// edited or deleted so a run never executes stale actions.
type Cache struct {
	mu        sync.RWMutex
	deps      Deps
	executors map[id.SyncConfigID]*Executor
}

func NewCache(deps Deps) *Cache {
	return &Cache{
		deps:      deps,
		executors: make(map[id.SyncConfigID]*Executor),
	}
}

// Get returns the cached executor for cfg, building one on first use. The
// config pointer is captured at build time, so callers must Invalidate on
// config mutation.
func (c *Cache) Get(cfg *models.SyncConfig) *Executor {
	c.mu.RLock()
	exec, ok := c.executors[cfg.ID]
	c.mu.RUnlock()
	if ok {
		return exec
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if exec, ok := c.executors[cfg.ID]; ok {
		return exec
	}
	exec = New(cfg, c.deps)
	c.executors[cfg.ID] = exec
	return exec
}

// Invalidate drops the executor for a config, forcing a rebuild on next use.
func (c *Cache) Invalidate(configID id.SyncConfigID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.executors, configID)
}

// Len reports the number of cached executors, for tests and metrics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.executors)
}
