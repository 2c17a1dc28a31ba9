package postgres

import (
	"context"
	"fmt"
)

// Schema holds the full DDL for the module. Statements are idempotent so the
// server can apply them at startup and integration tests can reuse them.
const Schema = `
CREATE TABLE IF NOT EXISTS systems (
	id       UUID PRIMARY KEY,
	name     TEXT NOT NULL,
	readonly BOOLEAN NOT NULL DEFAULT FALSE,
	disabled BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS entities (
	id            UUID PRIMARY KEY,
	entity_type   TEXT NOT NULL,
	name          TEXT NOT NULL,
	attributes    JSONB,
	password_hash TEXT NOT NULL DEFAULT '',
	disabled      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS entities_attributes_idx ON entities USING GIN (attributes);

CREATE TABLE IF NOT EXISTS accounts (
	id          UUID PRIMARY KEY,
	system_id   UUID NOT NULL,
	uid         TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (system_id, uid)
);

CREATE TABLE IF NOT EXISTS links (
	id         UUID PRIMARY KEY,
	account_id UUID NOT NULL UNIQUE,
	entity_id  UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS links_entity_idx ON links (entity_id);

CREATE TABLE IF NOT EXISTS contracts (
	id          UUID PRIMARY KEY,
	identity_id UUID NOT NULL,
	manager_id  UUID,
	valid_from  TIMESTAMPTZ,
	valid_till  TIMESTAMPTZ,
	main        BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS contracts_manager_idx ON contracts (manager_id, identity_id);

CREATE TABLE IF NOT EXISTS sync_configs (
	id                     UUID PRIMARY KEY,
	name                   TEXT NOT NULL,
	system_id              UUID NOT NULL,
	entity_type            TEXT NOT NULL,
	correlation_attribute  TEXT NOT NULL,
	reconciliation         BOOLEAN NOT NULL DEFAULT FALSE,
	enabled                BOOLEAN NOT NULL DEFAULT TRUE,
	running                BOOLEAN NOT NULL DEFAULT FALSE,
	linked_action          TEXT NOT NULL,
	unlinked_action        TEXT NOT NULL,
	missing_entity_action  TEXT NOT NULL,
	missing_account_action TEXT NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_logs (
	id              UUID PRIMARY KEY,
	sync_config_id  UUID NOT NULL,
	transaction_id  TEXT NOT NULL,
	state           TEXT NOT NULL,
	started         TIMESTAMPTZ NOT NULL,
	ended           TIMESTAMPTZ,
	processed       INTEGER NOT NULL DEFAULT 0,
	linked          INTEGER NOT NULL DEFAULT 0,
	unlinked        INTEGER NOT NULL DEFAULT 0,
	missing_entity  INTEGER NOT NULL DEFAULT 0,
	missing_account INTEGER NOT NULL DEFAULT 0,
	ignored         INTEGER NOT NULL DEFAULT 0,
	errors          INTEGER NOT NULL DEFAULT 0,
	contains_error  BOOLEAN NOT NULL DEFAULT FALSE,
	message         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS sync_logs_config_idx ON sync_logs (sync_config_id, transaction_id);

CREATE TABLE IF NOT EXISTS sync_item_logs (
	id          UUID PRIMARY KEY,
	sync_log_id UUID NOT NULL,
	seq         INTEGER NOT NULL,
	uid         TEXT NOT NULL,
	situation   TEXT NOT NULL,
	action      TEXT NOT NULL,
	result      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	account_id  UUID,
	entity_id   UUID,
	created_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (sync_log_id, seq)
);

CREATE TABLE IF NOT EXISTS provisioning_operations (
	id             UUID PRIMARY KEY,
	op_type        TEXT NOT NULL,
	system_id      UUID NOT NULL,
	entity_id      UUID,
	entity_type    TEXT NOT NULL,
	uid            TEXT NOT NULL,
	attributes     JSONB,
	result         TEXT NOT NULL,
	result_code    TEXT NOT NULL DEFAULT '',
	result_message TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	executed_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS provisioning_operations_system_idx ON provisioning_operations (system_id, created_at);
CREATE INDEX IF NOT EXISTS provisioning_operations_entity_idx ON provisioning_operations (entity_id, created_at);
`

// Migrate applies the schema. Safe to call on every startup.
func (p *Pool) Migrate(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
