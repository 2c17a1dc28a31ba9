package runlog

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

// PostgresStore persists run logs and item logs in PostgreSQL.
type PostgresStore struct {
	pool *postgres.Pool
}

func NewPostgres(pool *postgres.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const logColumns = `id, sync_config_id, transaction_id, state, started, ended,
	processed, linked, unlinked, missing_entity, missing_account, ignored,
	errors, contains_error, message`

func (s *PostgresStore) CreateLog(ctx context.Context, syncLog *models.SyncLog) error {
	_, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		INSERT INTO sync_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		uuid.UUID(syncLog.ID), uuid.UUID(syncLog.SyncConfigID), syncLog.TransactionID,
		string(syncLog.State), syncLog.Started, syncLog.Ended,
		syncLog.Processed, syncLog.Linked, syncLog.Unlinked, syncLog.MissingEntity,
		syncLog.MissingAccount, syncLog.Ignored, syncLog.Errors,
		syncLog.ContainsError, syncLog.Message,
	)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateLog(ctx context.Context, syncLog *models.SyncLog) error {
	tag, err := s.pool.QuerierFrom(ctx).Exec(ctx, `
		UPDATE sync_logs SET
			state = $2, ended = $3, processed = $4, linked = $5, unlinked = $6,
			missing_entity = $7, missing_account = $8, ignored = $9, errors = $10,
			contains_error = $11, message = $12
		WHERE id = $1`,
		uuid.UUID(syncLog.ID), string(syncLog.State), syncLog.Ended,
		syncLog.Processed, syncLog.Linked, syncLog.Unlinked, syncLog.MissingEntity,
		syncLog.MissingAccount, syncLog.Ignored, syncLog.Errors,
		syncLog.ContainsError, syncLog.Message,
	)
	if err != nil {
		return fmt.Errorf("update sync log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetLog(ctx context.Context, logID id.SyncLogID) (*models.SyncLog, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT `+logColumns+` FROM sync_logs WHERE id = $1`, uuid.UUID(logID))
	return scanLog(row)
}

func (s *PostgresStore) ListLogs(ctx context.Context, configID id.SyncConfigID) ([]*models.SyncLog, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx, `
		SELECT `+logColumns+` FROM sync_logs
		WHERE sync_config_id = $1 ORDER BY transaction_id`,
		uuid.UUID(configID))
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.SyncLog
	for rows.Next() {
		syncLog, scanErr := scanLog(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		logs = append(logs, syncLog)
	}
	return logs, rows.Err()
}

func (s *PostgresStore) AppendItem(ctx context.Context, item *models.SyncItemLog) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	// Seq assignment and insert share one statement so appends stay ordered
	// without a separate counter roundtrip.
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx, `
		INSERT INTO sync_item_logs
			(id, sync_log_id, seq, uid, situation, action, result, message,
			 account_id, entity_id, created_at)
		SELECT $1, $2, COALESCE(MAX(seq) + 1, 0), $3, $4, $5, $6, $7, $8, $9, $10
		FROM sync_item_logs WHERE sync_log_id = $2
		RETURNING seq`,
		uuid.UUID(item.ID), uuid.UUID(item.SyncLogID), item.UID,
		string(item.Situation), item.Action, string(item.Result), item.Message,
		accountIDValue(item.AccountID), entityIDValue(item.EntityID), item.CreatedAt,
	)
	if err := row.Scan(&item.Seq); err != nil {
		return fmt.Errorf("append sync item log: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, itemID id.SyncItemID) (*models.SyncItemLog, error) {
	row := s.pool.QuerierFrom(ctx).QueryRow(ctx,
		`SELECT `+itemColumns+` FROM sync_item_logs WHERE id = $1`, uuid.UUID(itemID))
	return scanItem(row)
}

func (s *PostgresStore) ListItems(ctx context.Context, logID id.SyncLogID) ([]*models.SyncItemLog, error) {
	rows, err := s.pool.QuerierFrom(ctx).Query(ctx, `
		SELECT `+itemColumns+` FROM sync_item_logs
		WHERE sync_log_id = $1 ORDER BY seq`,
		uuid.UUID(logID))
	if err != nil {
		return nil, fmt.Errorf("list sync item logs: %w", err)
	}
	defer rows.Close()

	var items []*models.SyncItemLog
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const itemColumns = `id, sync_log_id, seq, uid, situation, action, result,
	message, account_id, entity_id, created_at`

func scanLog(row pgx.Row) (*models.SyncLog, error) {
	var (
		syncLog  models.SyncLog
		logID    uuid.UUID
		configID uuid.UUID
		state    string
	)
	err := row.Scan(
		&logID, &configID, &syncLog.TransactionID, &state, &syncLog.Started,
		&syncLog.Ended, &syncLog.Processed, &syncLog.Linked, &syncLog.Unlinked,
		&syncLog.MissingEntity, &syncLog.MissingAccount, &syncLog.Ignored,
		&syncLog.Errors, &syncLog.ContainsError, &syncLog.Message,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sync log: %w", err)
	}
	syncLog.ID = id.SyncLogID(logID)
	syncLog.SyncConfigID = id.SyncConfigID(configID)
	syncLog.State = models.RunState(state)
	return &syncLog, nil
}

func scanItem(row pgx.Row) (*models.SyncItemLog, error) {
	var (
		item      models.SyncItemLog
		itemID    uuid.UUID
		logID     uuid.UUID
		situation string
		result    string
		accountID *uuid.UUID
		entityID  *uuid.UUID
	)
	err := row.Scan(
		&itemID, &logID, &item.Seq, &item.UID, &situation, &item.Action,
		&result, &item.Message, &accountID, &entityID, &item.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sync item log: %w", err)
	}
	item.ID = id.SyncItemID(itemID)
	item.SyncLogID = id.SyncLogID(logID)
	item.Situation = models.Situation(situation)
	item.Result = models.ItemResult(result)
	if accountID != nil {
		converted := id.AccountID(*accountID)
		item.AccountID = &converted
	}
	if entityID != nil {
		converted := id.EntityID(*entityID)
		item.EntityID = &converted
	}
	return &item, nil
}

func accountIDValue(accountID *id.AccountID) *uuid.UUID {
	if accountID == nil {
		return nil
	}
	converted := uuid.UUID(*accountID)
	return &converted
}

func entityIDValue(entityID *id.EntityID) *uuid.UUID {
	if entityID == nil {
		return nil
	}
	converted := uuid.UUID(*entityID)
	return &converted
}
