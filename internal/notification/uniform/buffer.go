package uniform

import (
	"context"
	"sort"
	"sync"

	id "idsync/pkg/domain"
)

// Entry is one identity's deferred password handout: the generated password
// and every system an account was created on during the run.
type Entry struct {
	EntityID id.EntityID `json:"entity_id"`
	Password string      `json:"password"`
	Systems  []string    `json:"systems"`
}

// Buffer collects uniform password handouts per transaction until the run
// ends. Add is called once per created account; Flush drains the transaction
// and must be idempotent, a second flush of the same transaction sends
// nothing.
type Buffer interface {
	// Add records password for entityID under txID, appending system to the
	// entry's system list. The password of the first Add for an entity wins.
	Add(ctx context.Context, txID string, entityID id.EntityID, password, system string) error
	// Flush drains all entries for txID through send. Entries are removed
	// before send runs so a crashed send never double-delivers.
	Flush(ctx context.Context, txID string, send func(Entry) error) error
}

// MemoryBuffer keeps deferred handouts in process memory.
type MemoryBuffer struct {
	mu   sync.Mutex
	runs map[string]map[id.EntityID]*Entry
}

func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{runs: make(map[string]map[id.EntityID]*Entry)}
}

func (b *MemoryBuffer) Add(_ context.Context, txID string, entityID id.EntityID, password, system string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	run, ok := b.runs[txID]
	if !ok {
		run = make(map[id.EntityID]*Entry)
		b.runs[txID] = run
	}
	entry, ok := run[entityID]
	if !ok {
		entry = &Entry{EntityID: entityID, Password: password}
		run[entityID] = entry
	}
	entry.Systems = append(entry.Systems, system)
	return nil
}

func (b *MemoryBuffer) Flush(_ context.Context, txID string, send func(Entry) error) error {
	b.mu.Lock()
	run := b.runs[txID]
	delete(b.runs, txID)
	b.mu.Unlock()

	entries := make([]Entry, 0, len(run))
	for _, entry := range run {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EntityID.String() < entries[j].EntityID.String()
	})

	for _, entry := range entries {
		if err := send(entry); err != nil {
			return err
		}
	}
	return nil
}
