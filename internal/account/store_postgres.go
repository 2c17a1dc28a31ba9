package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"idsync/internal/platform/postgres"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// PostgreSQL stores for the account domain. Entity attributes live in a JSONB
// column; everything else is plain columns.

type PostgresEntityStore struct {
	pool *postgres.Pool
}

func NewPostgresEntityStore(pool *postgres.Pool) *PostgresEntityStore {
	return &PostgresEntityStore{pool: pool}
}

const entityColumns = `id, entity_type, name, attributes, password_hash, disabled, created_at, updated_at`

func (s *PostgresEntityStore) Create(ctx context.Context, entity *Entity) error {
	_, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO entities (`+entityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(entity.ID), string(entity.Type), entity.Name, entity.Attributes,
		entity.PasswordHash, entity.Disabled, entity.CreatedAt, entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *PostgresEntityStore) Get(ctx context.Context, entityID id.EntityID) (*Entity, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = $1`, uuid.UUID(entityID))
	return scanEntity(row)
}

func (s *PostgresEntityStore) Update(ctx context.Context, entity *Entity) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		UPDATE entities SET
			entity_type = $2, name = $3, attributes = $4, password_hash = $5,
			disabled = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(entity.ID), string(entity.Type), entity.Name, entity.Attributes,
		entity.PasswordHash, entity.Disabled, entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresEntityStore) Delete(ctx context.Context, entityID id.EntityID) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx,
		`DELETE FROM entities WHERE id = $1`, uuid.UUID(entityID))
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresEntityStore) FindByAttribute(ctx context.Context, entityType id.EntityType, name, value string) ([]*Entity, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE entity_type = $1 AND attributes->>$2 = $3
		ORDER BY id`,
		string(entityType), name, value,
	)
	if err != nil {
		return nil, fmt.Errorf("find entities by attribute: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

func scanEntity(row pgx.Row) (*Entity, error) {
	var (
		entity     Entity
		entityID   uuid.UUID
		entityType string
	)
	err := row.Scan(
		&entityID, &entityType, &entity.Name, &entity.Attributes,
		&entity.PasswordHash, &entity.Disabled, &entity.CreatedAt, &entity.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	entity.ID = id.EntityID(entityID)
	entity.Type = id.EntityType(entityType)
	return &entity, nil
}

type PostgresSystemStore struct {
	pool *postgres.Pool
}

func NewPostgresSystemStore(pool *postgres.Pool) *PostgresSystemStore {
	return &PostgresSystemStore{pool: pool}
}

func (s *PostgresSystemStore) Create(ctx context.Context, system *System) error {
	_, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO systems (id, name, readonly, disabled) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(system.ID), system.Name, system.Readonly, system.Disabled,
	)
	if err != nil {
		return fmt.Errorf("insert system: %w", err)
	}
	return nil
}

func (s *PostgresSystemStore) Get(ctx context.Context, systemID id.SystemID) (*System, error) {
	var (
		system System
		sysID  uuid.UUID
	)
	err := s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT id, name, readonly, disabled FROM systems WHERE id = $1`,
		uuid.UUID(systemID),
	).Scan(&sysID, &system.Name, &system.Readonly, &system.Disabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan system: %w", err)
	}
	system.ID = id.SystemID(sysID)
	return &system, nil
}

type PostgresAccountStore struct {
	pool *postgres.Pool
}

func NewPostgresAccountStore(pool *postgres.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{pool: pool}
}

const accountColumns = `id, system_id, uid, entity_type, created_at`

func (s *PostgresAccountStore) Create(ctx context.Context, acc *Account) error {
	_, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(acc.ID), uuid.UUID(acc.SystemID), acc.UID, string(acc.EntityType), acc.CreatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) Get(ctx context.Context, accountID id.AccountID) (*Account, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, uuid.UUID(accountID))
	acc, err := scanAccount(row)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *PostgresAccountStore) Delete(ctx context.Context, accountID id.AccountID) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx,
		`DELETE FROM accounts WHERE id = $1`, uuid.UUID(accountID))
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindByUID returns nil when no account exists; absence is a reconciliation
// signal, not an error.
func (s *PostgresAccountStore) FindByUID(ctx context.Context, systemID id.SystemID, uid string) (*Account, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE system_id = $1 AND uid = $2`,
		uuid.UUID(systemID), uid,
	)
	acc, err := scanAccount(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return acc, err
}

func (s *PostgresAccountStore) ListBySystem(ctx context.Context, systemID id.SystemID) ([]*Account, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE system_id = $1 ORDER BY uid`,
		uuid.UUID(systemID),
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acc        Account
		accID      uuid.UUID
		systemID   uuid.UUID
		entityType string
	)
	err := row.Scan(&accID, &systemID, &acc.UID, &entityType, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	acc.ID = id.AccountID(accID)
	acc.SystemID = id.SystemID(systemID)
	acc.EntityType = id.EntityType(entityType)
	return &acc, nil
}

type PostgresLinkStore struct {
	pool *postgres.Pool
}

func NewPostgresLinkStore(pool *postgres.Pool) *PostgresLinkStore {
	return &PostgresLinkStore{pool: pool}
}

func (s *PostgresLinkStore) Create(ctx context.Context, link *Link) error {
	_, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO links (id, account_id, entity_id, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(link.ID), uuid.UUID(link.AccountID), uuid.UUID(link.EntityID), link.CreatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

// FindByAccount returns nil when the account is unlinked.
func (s *PostgresLinkStore) FindByAccount(ctx context.Context, accountID id.AccountID) (*Link, error) {
	link, err := scanLink(s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT id, account_id, entity_id, created_at FROM links WHERE account_id = $1`,
		uuid.UUID(accountID),
	))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return link, err
}

func (s *PostgresLinkStore) FindByEntity(ctx context.Context, entityID id.EntityID) ([]*Link, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx,
		`SELECT id, account_id, entity_id, created_at FROM links WHERE entity_id = $1 ORDER BY created_at`,
		uuid.UUID(entityID),
	)
	if err != nil {
		return nil, fmt.Errorf("list links by entity: %w", err)
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (s *PostgresLinkStore) Delete(ctx context.Context, linkID id.LinkID) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx,
		`DELETE FROM links WHERE id = $1`, uuid.UUID(linkID))
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanLink(row pgx.Row) (*Link, error) {
	var (
		link      Link
		linkID    uuid.UUID
		accountID uuid.UUID
		entityID  uuid.UUID
	)
	err := row.Scan(&linkID, &accountID, &entityID, &link.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan link: %w", err)
	}
	link.ID = id.LinkID(linkID)
	link.AccountID = id.AccountID(accountID)
	link.EntityID = id.EntityID(entityID)
	return &link, nil
}

type PostgresContractStore struct {
	pool *postgres.Pool
}

func NewPostgresContractStore(pool *postgres.Pool) *PostgresContractStore {
	return &PostgresContractStore{pool: pool}
}

const contractColumns = `id, identity_id, manager_id, valid_from, valid_till, main`

func (s *PostgresContractStore) Create(ctx context.Context, contract *Contract) error {
	var managerID *uuid.UUID
	if contract.ManagerID != nil {
		m := uuid.UUID(*contract.ManagerID)
		managerID = &m
	}
	_, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO contracts (`+contractColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(contract.ID), uuid.UUID(contract.IdentityID), managerID,
		contract.ValidFrom, contract.ValidTill, contract.Main,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (s *PostgresContractStore) Get(ctx context.Context, contractID id.ContractID) (*Contract, error) {
	return scanContract(s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1`, uuid.UUID(contractID)))
}

func (s *PostgresContractStore) Delete(ctx context.Context, contractID id.ContractID) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx,
		`DELETE FROM contracts WHERE id = $1`, uuid.UUID(contractID))
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresContractStore) ListByIdentity(ctx context.Context, identityID id.EntityID) ([]*Contract, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE identity_id = $1 ORDER BY id`,
		uuid.UUID(identityID),
	)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	return contracts, rows.Err()
}

// StreamSubordinates pages through distinct subordinate identities with a
// keyset cursor, so wide manager trees never load in one query.
func (s *PostgresContractStore) StreamSubordinates(ctx context.Context, managerID id.EntityID, batchSize int, fn func(batch []id.EntityID) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	var cursor uuid.UUID
	for {
		rows, err := s.pool.QuerierFrom(ctx).Query(ctx, `
			SELECT DISTINCT identity_id FROM contracts
			WHERE manager_id = $1 AND identity_id > $2
			ORDER BY identity_id
			LIMIT $3`,
			uuid.UUID(managerID), cursor, batchSize,
		)
		if err != nil {
			return fmt.Errorf("stream subordinates: %w", err)
		}

		batch := make([]id.EntityID, 0, batchSize)
		for rows.Next() {
			var identityID uuid.UUID
			if err := rows.Scan(&identityID); err != nil {
				rows.Close()
				return fmt.Errorf("scan subordinate: %w", err)
			}
			batch = append(batch, id.EntityID(identityID))
			cursor = identityID
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
	}
}

func scanContract(row pgx.Row) (*Contract, error) {
	var (
		contract   Contract
		contractID uuid.UUID
		identityID uuid.UUID
		managerID  *uuid.UUID
	)
	err := row.Scan(&contractID, &identityID, &managerID,
		&contract.ValidFrom, &contract.ValidTill, &contract.Main)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan contract: %w", err)
	}
	contract.ID = id.ContractID(contractID)
	contract.IdentityID = id.EntityID(identityID)
	if managerID != nil {
		m := id.EntityID(*managerID)
		contract.ManagerID = &m
	}
	return &contract, nil
}
