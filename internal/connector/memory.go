package connector

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	id "idsync/pkg/domain"
)

// MemoryConnector serves items from memory. It backs unit tests and dev mode,
// and doubles as the reference for how paged connectors should behave: items
// stream in stable UID order and paging honors the configured rate limit.
type MemoryConnector struct {
	mu       sync.RWMutex
	items    map[id.SystemID]map[string]Item
	pageSize int
	limiter  *rate.Limiter
}

type MemoryOption func(*MemoryConnector)

// WithPageSize sets how many items are pulled per simulated page.
func WithPageSize(size int) MemoryOption {
	return func(c *MemoryConnector) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithRateLimit throttles page fetches to eventsPerSec.
func WithRateLimit(eventsPerSec float64) MemoryOption {
	return func(c *MemoryConnector) {
		if eventsPerSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(eventsPerSec), 1)
		}
	}
}

func NewMemoryConnector(opts ...MemoryOption) *MemoryConnector {
	c := &MemoryConnector{
		items:    make(map[id.SystemID]map[string]Item),
		pageSize: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Put seeds or replaces a remote item.
func (c *MemoryConnector) Put(systemID id.SystemID, item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items[systemID] == nil {
		c.items[systemID] = make(map[string]Item)
	}
	c.items[systemID][item.UID] = item
}

// Remove deletes a remote item, simulating out-of-band deletion on the target.
func (c *MemoryConnector) Remove(systemID id.SystemID, uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items[systemID], uid)
}

func (c *MemoryConnector) Search(ctx context.Context, systemID id.SystemID, fn func(item Item) error) error {
	c.mu.RLock()
	uids := make([]string, 0, len(c.items[systemID]))
	for uid := range c.items[systemID] {
		uids = append(uids, uid)
	}
	c.mu.RUnlock()
	sort.Strings(uids)

	for start := 0; start < len(uids); start += c.pageSize {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+c.pageSize, len(uids))
		for _, uid := range uids[start:end] {
			item, ok := c.read(systemID, uid)
			if !ok {
				continue
			}
			if err := fn(item); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *MemoryConnector) ReadItem(_ context.Context, systemID id.SystemID, uid string) (*Item, error) {
	item, ok := c.read(systemID, uid)
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (c *MemoryConnector) read(systemID id.SystemID, uid string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[systemID][uid]
	if !ok {
		return Item{}, false
	}
	// Copy the attribute map so callers cannot mutate stored state.
	copied := Item{UID: item.UID, Attributes: make(map[string]string, len(item.Attributes))}
	for k, v := range item.Attributes {
		copied.Attributes[k] = v
	}
	return copied, true
}
