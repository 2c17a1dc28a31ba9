package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"idsync/internal/platform/postgres"
	"idsync/internal/provisioning/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
)

// PostgresStore persists provisioning operations in PostgreSQL. Attribute
// values are serialized to JSONB.
type PostgresStore struct {
	pool *postgres.Pool
}

func NewPostgres(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const opColumns = `id, op_type, system_id, entity_id, entity_type, uid,
	attributes, result, result_code, result_message, created_at, executed_at`

func (s *PostgresStore) Save(ctx context.Context, op *models.Operation) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	attrs, err := json.Marshal(op.Attributes)
	if err != nil {
		return fmt.Errorf("marshal operation attributes: %w", err)
	}

	_, err = s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO provisioning_operations (`+opColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			result = EXCLUDED.result,
			result_code = EXCLUDED.result_code,
			result_message = EXCLUDED.result_message,
			executed_at = EXCLUDED.executed_at`,
		uuid.UUID(op.ID), string(op.Type), uuid.UUID(op.SystemID),
		entityIDValue(op.EntityID), string(op.EntityType), op.UID, attrs,
		string(op.Result), op.ResultCode, op.ResultMessage,
		op.CreatedAt, op.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("save provisioning operation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, opID id.OperationID) (*models.Operation, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT `+opColumns+` FROM provisioning_operations WHERE id = $1`,
		uuid.UUID(opID))
	return scanOperation(row)
}

func (s *PostgresStore) ListBySystem(ctx context.Context, systemID id.SystemID) ([]*models.Operation, error) {
	return s.list(ctx, `SELECT `+opColumns+` FROM provisioning_operations
		WHERE system_id = $1 ORDER BY created_at`, uuid.UUID(systemID))
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityID id.EntityID) ([]*models.Operation, error) {
	return s.list(ctx, `SELECT `+opColumns+` FROM provisioning_operations
		WHERE entity_id = $1 ORDER BY created_at`, uuid.UUID(entityID))
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.Operation, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list provisioning operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.Operation
	for rows.Next() {
		op, scanErr := scanOperation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func scanOperation(row pgx.Row) (*models.Operation, error) {
	var (
		op         models.Operation
		opID       uuid.UUID
		opType     string
		systemID   uuid.UUID
		entityID   *uuid.UUID
		entityType string
		attrs      []byte
		result     string
	)
	err := row.Scan(
		&opID, &opType, &systemID, &entityID, &entityType, &op.UID,
		&attrs, &result, &op.ResultCode, &op.ResultMessage,
		&op.CreatedAt, &op.ExecutedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan provisioning operation: %w", err)
	}
	op.ID = id.OperationID(opID)
	op.Type = models.OperationType(opType)
	op.SystemID = id.SystemID(systemID)
	op.EntityType = id.EntityType(entityType)
	op.Result = models.ResultState(result)
	if entityID != nil {
		converted := id.EntityID(*entityID)
		op.EntityID = &converted
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &op.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal operation attributes: %w", err)
		}
	}
	return &op, nil
}

func entityIDValue(entityID *id.EntityID) *uuid.UUID {
	if entityID == nil {
		return nil
	}
	converted := uuid.UUID(*entityID)
	return &converted
}
