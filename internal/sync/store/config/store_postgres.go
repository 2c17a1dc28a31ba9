package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"idsync/internal/platform/postgres"
	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// PostgresStore persists sync configs in PostgreSQL. Run acquisition is a
// conditional UPDATE so concurrent starts race on a single row write instead
// of a read-then-write pair.
type PostgresStore struct {
	pool *postgres.Pool
}

func NewPostgres(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const configColumns = `id, name, system_id, entity_type, correlation_attribute,
	reconciliation, enabled, running, linked_action, unlinked_action,
	missing_entity_action, missing_account_action, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, cfg *models.SyncConfig) error {
	now := time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = cfg.CreatedAt

	_, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO sync_configs (`+configColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		uuid.UUID(cfg.ID), cfg.Name, uuid.UUID(cfg.SystemID), string(cfg.EntityType),
		cfg.CorrelationAttribute, cfg.Reconciliation, cfg.Enabled, cfg.Running,
		string(cfg.LinkedAction), string(cfg.UnlinkedAction),
		string(cfg.MissingEntityAction), string(cfg.MissingAccountAction),
		cfg.CreatedAt, cfg.UpdatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert sync config: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, configID id.SyncConfigID) (*models.SyncConfig, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx, `
		SELECT `+configColumns+` FROM sync_configs WHERE id = $1`,
		uuid.UUID(configID),
	)
	return scanConfig(row)
}

func (s *PostgresStore) Update(ctx context.Context, cfg *models.SyncConfig) error {
	cfg.UpdatedAt = time.Now()
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		UPDATE sync_configs SET
			name = $2, system_id = $3, entity_type = $4, correlation_attribute = $5,
			reconciliation = $6, enabled = $7, linked_action = $8, unlinked_action = $9,
			missing_entity_action = $10, missing_account_action = $11, updated_at = $12
		WHERE id = $1`,
		uuid.UUID(cfg.ID), cfg.Name, uuid.UUID(cfg.SystemID), string(cfg.EntityType),
		cfg.CorrelationAttribute, cfg.Reconciliation, cfg.Enabled,
		string(cfg.LinkedAction), string(cfg.UnlinkedAction),
		string(cfg.MissingEntityAction), string(cfg.MissingAccountAction),
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sync config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, configID id.SyncConfigID) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx,
		`DELETE FROM sync_configs WHERE id = $1`, uuid.UUID(configID))
	if err != nil {
		return fmt.Errorf("delete sync config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.SyncConfig, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx,
		`SELECT `+configColumns+` FROM sync_configs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sync configs: %w", err)
	}
	defer rows.Close()
	return scanConfigs(rows)
}

// TryAcquireRun performs the compare-and-set: the WHERE clause only matches an
// enabled, idle config, so exactly one concurrent caller wins.
func (s *PostgresStore) TryAcquireRun(ctx context.Context, configID id.SyncConfigID) (*models.SyncConfig, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx, `
		UPDATE sync_configs SET running = TRUE, updated_at = NOW()
		WHERE id = $1 AND enabled = TRUE AND running = FALSE
		RETURNING `+configColumns,
		uuid.UUID(configID),
	)
	cfg, err := scanConfig(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Distinguish missing from already-running/disabled.
		existing, getErr := s.Get(ctx, configID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Running {
			return nil, sentinel.ErrConflict
		}
		return nil, sentinel.ErrInvalidState
	}
	return cfg, err
}

func (s *PostgresStore) ReleaseRun(ctx context.Context, configID id.SyncConfigID) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		UPDATE sync_configs SET running = FALSE, updated_at = NOW() WHERE id = $1`,
		uuid.UUID(configID),
	)
	if err != nil {
		return fmt.Errorf("release sync run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRunning(ctx context.Context) ([]*models.SyncConfig, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx,
		`SELECT `+configColumns+` FROM sync_configs WHERE running = TRUE ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list running sync configs: %w", err)
	}
	defer rows.Close()
	return scanConfigs(rows)
}

func scanConfig(row pgx.Row) (*models.SyncConfig, error) {
	var (
		cfg        models.SyncConfig
		configID   uuid.UUID
		systemID   uuid.UUID
		entityType string
		linked     string
		unlinked   string
		missEnt    string
		missAcc    string
	)
	err := row.Scan(
		&configID, &cfg.Name, &systemID, &entityType, &cfg.CorrelationAttribute,
		&cfg.Reconciliation, &cfg.Enabled, &cfg.Running, &linked, &unlinked,
		&missEnt, &missAcc, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sync config: %w", err)
	}
	cfg.ID = id.SyncConfigID(configID)
	cfg.SystemID = id.SystemID(systemID)
	cfg.EntityType = id.EntityType(entityType)
	cfg.LinkedAction = models.LinkedAction(linked)
	cfg.UnlinkedAction = models.UnlinkedAction(unlinked)
	cfg.MissingEntityAction = models.MissingEntityAction(missEnt)
	cfg.MissingAccountAction = models.MissingAccountAction(missAcc)
	return &cfg, nil
}

func scanConfigs(rows pgx.Rows) ([]*models.SyncConfig, error) {
	var configs []*models.SyncConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
