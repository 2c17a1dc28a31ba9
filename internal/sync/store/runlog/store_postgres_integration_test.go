//go:build integration

package runlog

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
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
	s.postgres.TruncateTables(s.T(), "sync_item_logs", "sync_logs")
}

func newTestLog(configID id.SyncConfigID) *models.SyncLog {
	return &models.SyncLog{
		ID:            id.NewSyncLogID(),
		SyncConfigID:  configID,
		TransactionID: ulid.Make().String(),
		State:         models.RunStateRunning,
		Started:       time.Now(),
	}
}

func (s *PostgresStoreSuite) TestLogLifecycle() {
	ctx := context.Background()
	configID := id.NewSyncConfigID()

	syncLog := newTestLog(configID)
	s.Require().NoError(s.store.CreateLog(ctx, syncLog))

	s.Run("get round-trips", func() {
		got, err := s.store.GetLog(ctx, syncLog.ID)
		s.Require().NoError(err)
		s.Equal(syncLog.TransactionID, got.TransactionID)
		s.Equal(models.RunStateRunning, got.State)
		s.Nil(got.Ended)
		s.WithinDuration(syncLog.Started, got.Started, time.Second)
	})

	s.Run("counters and final state persist", func() {
		ended := time.Now()
		syncLog.State = models.RunStateCompleted
		syncLog.Ended = &ended
		syncLog.Processed = 7
		syncLog.Linked = 3
		syncLog.Errors = 1
		syncLog.ContainsError = true
		s.Require().NoError(s.store.UpdateLog(ctx, syncLog))

		got, err := s.store.GetLog(ctx, syncLog.ID)
		s.Require().NoError(err)
		s.Equal(models.RunStateCompleted, got.State)
		s.Require().NotNil(got.Ended)
		s.Equal(7, got.Processed)
		s.Equal(3, got.Linked)
		s.Equal(1, got.Errors)
		s.True(got.ContainsError)
	})

	s.Run("update unknown log", func() {
		ghost := newTestLog(configID)
		s.ErrorIs(s.store.UpdateLog(ctx, ghost), sentinel.ErrNotFound)
	})

	s.Run("list orders by transaction id", func() {
		second := newTestLog(configID)
		s.Require().NoError(s.store.CreateLog(ctx, second))

		logs, err := s.store.ListLogs(ctx, configID)
		s.Require().NoError(err)
		s.Require().Len(logs, 2)
		s.Equal(syncLog.ID, logs[0].ID)
		s.Equal(second.ID, logs[1].ID)
	})
}

func (s *PostgresStoreSuite) TestItemSequencing() {
	ctx := context.Background()

	syncLog := newTestLog(id.NewSyncConfigID())
	s.Require().NoError(s.store.CreateLog(ctx, syncLog))

	uids := []string{"alice", "bob", "carol"}
	for _, uid := range uids {
		item := &models.SyncItemLog{
			ID:        id.NewSyncItemID(),
			SyncLogID: syncLog.ID,
			UID:       uid,
			Situation: models.SituationLinked,
			Action:    string(models.LinkedUpdateEntity),
			Result:    models.ItemResultSuccess,
		}
		s.Require().NoError(s.store.AppendItem(ctx, item))
	}

	s.Run("seq assigned in append order", func() {
		items, err := s.store.ListItems(ctx, syncLog.ID)
		s.Require().NoError(err)
		s.Require().Len(items, 3)
		for i, item := range items {
			s.Equal(i, item.Seq)
			s.Equal(uids[i], item.UID)
		}
	})

	s.Run("seq is per log", func() {
		other := newTestLog(syncLog.SyncConfigID)
		s.Require().NoError(s.store.CreateLog(ctx, other))

		item := &models.SyncItemLog{
			ID:        id.NewSyncItemID(),
			SyncLogID: other.ID,
			UID:       "dave",
			Situation: models.SituationMissingEntity,
			Action:    string(models.MissingEntityCreateEntity),
			Result:    models.ItemResultSuccess,
		}
		s.Require().NoError(s.store.AppendItem(ctx, item))
		s.Equal(0, item.Seq)
	})
}

func (s *PostgresStoreSuite) TestItemReferences() {
	ctx := context.Background()

	syncLog := newTestLog(id.NewSyncConfigID())
	s.Require().NoError(s.store.CreateLog(ctx, syncLog))

	accountID := id.NewAccountID()
	entityID := id.NewEntityID()
	item := &models.SyncItemLog{
		ID:        id.NewSyncItemID(),
		SyncLogID: syncLog.ID,
		UID:       "alice",
		Situation: models.SituationUnlinked,
		Action:    string(models.UnlinkedLink),
		Result:    models.ItemResultSuccess,
		Message:   "linked to correlated entity",
		AccountID: &accountID,
		EntityID:  &entityID,
	}
	s.Require().NoError(s.store.AppendItem(ctx, item))

	got, err := s.store.GetItem(ctx, item.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.AccountID)
	s.Require().NotNil(got.EntityID)
	s.Equal(accountID, *got.AccountID)
	s.Equal(entityID, *got.EntityID)
	s.Equal("linked to correlated entity", got.Message)

	_, err = s.store.GetItem(ctx, id.NewSyncItemID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
