package runlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// MemoryStore keeps run logs and item logs in memory, preserving item order
// via the Seq field.
type MemoryStore struct {
	mu    sync.RWMutex
	logs  map[id.SyncLogID]*models.SyncLog
	items map[id.SyncLogID][]*models.SyncItemLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:  make(map[id.SyncLogID]*models.SyncLog),
		items: make(map[id.SyncLogID][]*models.SyncItemLog),
	}
}

func (s *MemoryStore) CreateLog(_ context.Context, syncLog *models.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.logs[syncLog.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *syncLog
	s.logs[syncLog.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateLog(_ context.Context, syncLog *models.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[syncLog.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *syncLog
	s.logs[syncLog.ID] = &copied
	return nil
}

func (s *MemoryStore) GetLog(_ context.Context, logID id.SyncLogID) (*models.SyncLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	syncLog, ok := s.logs[logID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *syncLog
	return &copied, nil
}

func (s *MemoryStore) ListLogs(_ context.Context, configID id.SyncConfigID) ([]*models.SyncLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var logs []*models.SyncLog
	for _, syncLog := range s.logs {
		if syncLog.SyncConfigID == configID {
			copied := *syncLog
			logs = append(logs, &copied)
		}
	}
	// Transaction ids are ULIDs; lexicographic order is start order.
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].TransactionID < logs[j].TransactionID
	})
	return logs, nil
}

func (s *MemoryStore) AppendItem(_ context.Context, item *models.SyncItemLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[item.SyncLogID]; !ok {
		return sentinel.ErrNotFound
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	item.Seq = len(s.items[item.SyncLogID])
	copied := *item
	s.items[item.SyncLogID] = append(s.items[item.SyncLogID], &copied)
	return nil
}

func (s *MemoryStore) GetItem(_ context.Context, itemID id.SyncItemID) (*models.SyncItemLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, items := range s.items {
		for _, item := range items {
			if item.ID == itemID {
				copied := *item
				return &copied, nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListItems(_ context.Context, logID id.SyncLogID) ([]*models.SyncItemLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]*models.SyncItemLog, 0, len(s.items[logID]))
	for _, item := range s.items[logID] {
		copied := *item
		items = append(items, &copied)
	}
	return items, nil
}
