//go:build integration

package config

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idsync/internal/platform/postgres"
	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	"idsync/pkg/platform/sentinel"
	"idsync/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	pool     *postgres.Pool
	store    *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), postgres.Schema)

	pool, err := postgres.Connect(context.Background(), s.postgres.DSN)
	s.Require().NoError(err)
	s.pool = pool
	s.store = NewPostgres(pool)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	s.postgres.TruncateTables(s.T(), "sync_configs")
}

func newTestConfig(name string) *models.SyncConfig {
	return &models.SyncConfig{
		ID:                   id.NewSyncConfigID(),
		Name:                 name,
		SystemID:             id.NewSystemID(),
		EntityType:           id.EntityTypeIdentity,
		CorrelationAttribute: "username",
		Enabled:              true,
		LinkedAction:         models.LinkedUpdateEntity,
		UnlinkedAction:       models.UnlinkedLink,
		MissingEntityAction:  models.MissingEntityCreateEntity,
		MissingAccountAction: models.MissingAccountIgnore,
	}
}

func (s *PostgresStoreSuite) TestCRUD() {
	ctx := context.Background()

	cfg := newTestConfig("hr-sync")
	s.Require().NoError(s.store.Create(ctx, cfg))
	s.False(cfg.CreatedAt.IsZero())

	s.Run("duplicate id conflicts", func() {
		dup := newTestConfig("hr-sync-copy")
		dup.ID = cfg.ID
		s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict)
	})

	s.Run("get round-trips", func() {
		got, err := s.store.Get(ctx, cfg.ID)
		s.Require().NoError(err)
		s.Equal(cfg.Name, got.Name)
		s.Equal(cfg.SystemID, got.SystemID)
		s.Equal(models.LinkedUpdateEntity, got.LinkedAction)
		s.WithinDuration(cfg.CreatedAt, got.CreatedAt, time.Second)
	})

	s.Run("update lands", func() {
		cfg.Name = "hr-sync-renamed"
		cfg.Reconciliation = true
		s.Require().NoError(s.store.Update(ctx, cfg))

		got, err := s.store.Get(ctx, cfg.ID)
		s.Require().NoError(err)
		s.Equal("hr-sync-renamed", got.Name)
		s.True(got.Reconciliation)
	})

	s.Run("update unknown", func() {
		missing := newTestConfig("ghost")
		s.ErrorIs(s.store.Update(ctx, missing), sentinel.ErrNotFound)
	})

	s.Run("list orders by name", func() {
		other := newTestConfig("ad-sync")
		s.Require().NoError(s.store.Create(ctx, other))

		configs, err := s.store.List(ctx)
		s.Require().NoError(err)
		s.Require().Len(configs, 2)
		s.Equal("ad-sync", configs[0].Name)
		s.Equal("hr-sync-renamed", configs[1].Name)
	})

	s.Run("delete", func() {
		s.Require().NoError(s.store.Delete(ctx, cfg.ID))
		_, err := s.store.Get(ctx, cfg.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.Delete(ctx, cfg.ID), sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestTryAcquireRun() {
	ctx := context.Background()

	cfg := newTestConfig("acquire")
	s.Require().NoError(s.store.Create(ctx, cfg))

	acquired, err := s.store.TryAcquireRun(ctx, cfg.ID)
	s.Require().NoError(err)
	s.True(acquired.Running)

	s.Run("second acquire conflicts", func() {
		_, err := s.store.TryAcquireRun(ctx, cfg.ID)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("release makes it acquirable again", func() {
		s.Require().NoError(s.store.ReleaseRun(ctx, cfg.ID))

		again, err := s.store.TryAcquireRun(ctx, cfg.ID)
		s.Require().NoError(err)
		s.True(again.Running)
		s.Require().NoError(s.store.ReleaseRun(ctx, cfg.ID))
	})

	s.Run("disabled config", func() {
		cfg.Enabled = false
		s.Require().NoError(s.store.Update(ctx, cfg))

		_, err := s.store.TryAcquireRun(ctx, cfg.ID)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown config", func() {
		_, err := s.store.TryAcquireRun(ctx, id.NewSyncConfigID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestTryAcquireRunConcurrent verifies the conditional UPDATE admits exactly
// one of many simultaneous starts.
func (s *PostgresStoreSuite) TestTryAcquireRunConcurrent() {
	ctx := context.Background()

	cfg := newTestConfig("race")
	s.Require().NoError(s.store.Create(ctx, cfg))

	const goroutines = 32
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.TryAcquireRun(ctx, cfg.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one start should win")
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestListRunning() {
	ctx := context.Background()

	running := newTestConfig("running")
	idle := newTestConfig("idle")
	s.Require().NoError(s.store.Create(ctx, running))
	s.Require().NoError(s.store.Create(ctx, idle))

	_, err := s.store.TryAcquireRun(ctx, running.ID)
	s.Require().NoError(err)

	configs, err := s.store.ListRunning(ctx)
	s.Require().NoError(err)
	s.Require().Len(configs, 1)
	s.Equal(running.ID, configs[0].ID)
}
