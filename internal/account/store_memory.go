package account

import (
	"context"
	"sort"
	"sync"
	"time"

	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// In-memory store implementations backing unit tests and dev mode.

// ---- EntityStore ----

type MemoryEntityStore struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*Entity
}

func NewMemoryEntityStore() *MemoryEntityStore {
	return &MemoryEntityStore{entities: make(map[id.EntityID]*Entity)}
}

func (s *MemoryEntityStore) Create(_ context.Context, entity *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[entity.ID]; exists {
		return sentinel.ErrConflict
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now()
	}
	entity.UpdatedAt = entity.CreatedAt
	s.entities[entity.ID] = cloneEntity(entity)
	return nil
}

func (s *MemoryEntityStore) Get(_ context.Context, entityID id.EntityID) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEntity(entity), nil
}

func (s *MemoryEntityStore) Update(_ context.Context, entity *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entity.ID]; !ok {
		return sentinel.ErrNotFound
	}
	entity.UpdatedAt = time.Now()
	s.entities[entity.ID] = cloneEntity(entity)
	return nil
}

func (s *MemoryEntityStore) Delete(_ context.Context, entityID id.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entityID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entities, entityID)
	return nil
}

func (s *MemoryEntityStore) FindByAttribute(_ context.Context, entityType id.EntityType, name, value string) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if value == "" {
		return nil, nil
	}
	var matches []*Entity
	for _, entity := range s.entities {
		if entity.Type != entityType {
			continue
		}
		if entity.Attributes[name] == value {
			matches = append(matches, cloneEntity(entity))
		}
	}
	// Stable order keeps ambiguity messages deterministic.
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID.String() < matches[j].ID.String()
	})
	return matches, nil
}

func cloneEntity(entity *Entity) *Entity {
	copied := *entity
	if entity.Attributes != nil {
		copied.Attributes = make(map[string]string, len(entity.Attributes))
		for k, v := range entity.Attributes {
			copied.Attributes[k] = v
		}
	}
	return &copied
}

// ---- SystemStore ----

type MemorySystemStore struct {
	mu      sync.RWMutex
	systems map[id.SystemID]*System
}

func NewMemorySystemStore() *MemorySystemStore {
	return &MemorySystemStore{systems: make(map[id.SystemID]*System)}
}

func (s *MemorySystemStore) Create(_ context.Context, system *System) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.systems[system.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *system
	s.systems[system.ID] = &copied
	return nil
}

func (s *MemorySystemStore) Get(_ context.Context, systemID id.SystemID) (*System, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	system, ok := s.systems[systemID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *system
	return &copied, nil
}

// ---- AccountStore ----

type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[id.AccountID]*Account)}
}

func (s *MemoryAccountStore) Create(_ context.Context, acc *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.SystemID == acc.SystemID && existing.UID == acc.UID {
			return sentinel.ErrConflict
		}
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now()
	}
	copied := *acc
	s.accounts[acc.ID] = &copied
	return nil
}

func (s *MemoryAccountStore) Get(_ context.Context, accountID id.AccountID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *acc
	return &copied, nil
}

func (s *MemoryAccountStore) Delete(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.accounts, accountID)
	return nil
}

func (s *MemoryAccountStore) FindByUID(_ context.Context, systemID id.SystemID, uid string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.SystemID == systemID && acc.UID == uid {
			copied := *acc
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryAccountStore) ListBySystem(_ context.Context, systemID id.SystemID) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []*Account
	for _, acc := range s.accounts {
		if acc.SystemID == systemID {
			copied := *acc
			accounts = append(accounts, &copied)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].UID < accounts[j].UID })
	return accounts, nil
}

// ---- LinkStore ----

type MemoryLinkStore struct {
	mu    sync.RWMutex
	links map[id.LinkID]*Link
}

func NewMemoryLinkStore() *MemoryLinkStore {
	return &MemoryLinkStore{links: make(map[id.LinkID]*Link)}
}

func (s *MemoryLinkStore) Create(_ context.Context, link *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.links {
		if existing.AccountID == link.AccountID {
			return sentinel.ErrConflict
		}
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	copied := *link
	s.links[link.ID] = &copied
	return nil
}

func (s *MemoryLinkStore) FindByAccount(_ context.Context, accountID id.AccountID) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.AccountID == accountID {
			copied := *link
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryLinkStore) FindByEntity(_ context.Context, entityID id.EntityID) ([]*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var links []*Link
	for _, link := range s.links {
		if link.EntityID == entityID {
			copied := *link
			links = append(links, &copied)
		}
	}
	return links, nil
}

func (s *MemoryLinkStore) Delete(_ context.Context, linkID id.LinkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[linkID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.links, linkID)
	return nil
}

// ---- ContractStore ----

type MemoryContractStore struct {
	mu        sync.RWMutex
	contracts map[id.ContractID]*Contract
}

func NewMemoryContractStore() *MemoryContractStore {
	return &MemoryContractStore{contracts: make(map[id.ContractID]*Contract)}
}

func (s *MemoryContractStore) Create(_ context.Context, contract *Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contracts[contract.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *contract
	s.contracts[contract.ID] = &copied
	return nil
}

func (s *MemoryContractStore) Get(_ context.Context, contractID id.ContractID) (*Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contract, ok := s.contracts[contractID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *contract
	return &copied, nil
}

func (s *MemoryContractStore) Delete(_ context.Context, contractID id.ContractID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[contractID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.contracts, contractID)
	return nil
}

func (s *MemoryContractStore) ListByIdentity(_ context.Context, identityID id.EntityID) ([]*Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var contracts []*Contract
	for _, contract := range s.contracts {
		if contract.IdentityID == identityID {
			copied := *contract
			contracts = append(contracts, &copied)
		}
	}
	return contracts, nil
}

func (s *MemoryContractStore) StreamSubordinates(ctx context.Context, managerID id.EntityID, batchSize int, fn func(batch []id.EntityID) error) error {
	if batchSize <= 0 {
		batchSize = 50
	}

	s.mu.RLock()
	seen := make(map[id.EntityID]struct{})
	var all []id.EntityID
	for _, contract := range s.contracts {
		if contract.ManagerID == nil || *contract.ManagerID != managerID {
			continue
		}
		if _, dup := seen[contract.IdentityID]; dup {
			continue
		}
		seen[contract.IdentityID] = struct{}{}
		all = append(all, contract.IdentityID)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })

	for start := 0; start < len(all); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(all))
		if err := fn(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}
