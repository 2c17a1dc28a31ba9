package service

import (
	"context"
	"errors"
	"time"

	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
	"idsync/pkg/platform/sentinel"
)

// Configuration management. Edits and deletions invalidate the per-config
// executor so the next run picks up the new actions.

func (r *SyncRunner) CreateConfig(ctx context.Context, cfg *models.SyncConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ID.IsZero() {
		cfg.ID = id.NewSyncConfigID()
	}
	now := time.Now()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	return r.configs.Create(ctx, cfg)
}

func (r *SyncRunner) GetConfig(ctx context.Context, configID id.SyncConfigID) (*models.SyncConfig, error) {
	cfg, err := r.configs.Get(ctx, configID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeSyncNotFound, "synchronization configuration not found").
				WithParam("config", configID.String())
		}
		return nil, err
	}
	return cfg, nil
}

func (r *SyncRunner) ListConfigs(ctx context.Context) ([]*models.SyncConfig, error) {
	return r.configs.List(ctx)
}

// UpdateConfig rejects edits while a run is active; status fields are owned
// by the run itself.
func (r *SyncRunner) UpdateConfig(ctx context.Context, cfg *models.SyncConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	current, err := r.GetConfig(ctx, cfg.ID)
	if err != nil {
		return err
	}
	if current.Running || r.Running(cfg.ID) {
		return dErrors.New(dErrors.CodeSyncIsRunning, "cannot edit a running synchronization").
			WithParam("config", cfg.ID.String())
	}
	cfg.CreatedAt = current.CreatedAt
	cfg.UpdatedAt = time.Now()
	if err := r.configs.Update(ctx, cfg); err != nil {
		return err
	}
	r.executors.Invalidate(cfg.ID)
	return nil
}

func (r *SyncRunner) DeleteConfig(ctx context.Context, configID id.SyncConfigID) error {
	current, err := r.GetConfig(ctx, configID)
	if err != nil {
		return err
	}
	if current.Running || r.Running(configID) {
		return dErrors.New(dErrors.CodeSyncIsRunning, "cannot delete a running synchronization").
			WithParam("config", configID.String())
	}
	if err := r.configs.Delete(ctx, configID); err != nil {
		return err
	}
	r.executors.Invalidate(configID)
	return nil
}

// Run log read surface.

func (r *SyncRunner) GetLog(ctx context.Context, logID id.SyncLogID) (*models.SyncLog, error) {
	syncLog, err := r.logs.GetLog(ctx, logID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "synchronization log not found").
				WithParam("log", logID.String())
		}
		return nil, err
	}
	return syncLog, nil
}

func (r *SyncRunner) ListLogs(ctx context.Context, configID id.SyncConfigID) ([]*models.SyncLog, error) {
	return r.logs.ListLogs(ctx, configID)
}

func (r *SyncRunner) ListItems(ctx context.Context, logID id.SyncLogID) ([]*models.SyncItemLog, error) {
	return r.logs.ListItems(ctx, logID)
}
