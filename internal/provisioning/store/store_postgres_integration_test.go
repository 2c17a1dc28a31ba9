//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idsync/internal/platform/postgres"
	"idsync/internal/provisioning/models"
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
	s.postgres.TruncateTables(s.T(), "provisioning_operations")
}

func newTestOperation(systemID id.SystemID, entityID id.EntityID, uid string) *models.Operation {
	return &models.Operation{
		ID:         id.NewOperationID(),
		Type:       models.OperationUpdate,
		SystemID:   systemID,
		EntityID:   &entityID,
		EntityType: id.EntityTypeIdentity,
		UID:        uid,
		Attributes: map[string]string{"mail": uid + "@example.com"},
		Result:     models.ResultCreated,
	}
}

func (s *PostgresStoreSuite) TestSaveUpsertsResult() {
	ctx := context.Background()

	op := newTestOperation(id.NewSystemID(), id.NewEntityID(), "alice")
	s.Require().NoError(s.store.Save(ctx, op))
	s.False(op.CreatedAt.IsZero())

	s.Run("round-trips attributes", func() {
		got, err := s.store.Get(ctx, op.ID)
		s.Require().NoError(err)
		s.Equal(models.ResultCreated, got.Result)
		s.Equal("alice@example.com", got.Attributes["mail"])
		s.Require().NotNil(got.EntityID)
		s.Equal(*op.EntityID, *got.EntityID)
	})

	s.Run("second save updates the result", func() {
		executed := time.Now()
		op.Result = models.ResultExecuted
		op.ExecutedAt = &executed
		s.Require().NoError(s.store.Save(ctx, op))

		got, err := s.store.Get(ctx, op.ID)
		s.Require().NoError(err)
		s.Equal(models.ResultExecuted, got.Result)
		s.Require().NotNil(got.ExecutedAt)
		s.WithinDuration(executed, *got.ExecutedAt, time.Second)
	})

	s.Run("unknown operation", func() {
		_, err := s.store.Get(ctx, id.NewOperationID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestListing() {
	ctx := context.Background()

	systemID := id.NewSystemID()
	entityID := id.NewEntityID()

	first := newTestOperation(systemID, entityID, "alice")
	s.Require().NoError(s.store.Save(ctx, first))
	second := newTestOperation(systemID, id.NewEntityID(), "bob")
	second.CreatedAt = time.Now().Add(time.Second)
	s.Require().NoError(s.store.Save(ctx, second))
	s.Require().NoError(s.store.Save(ctx, newTestOperation(id.NewSystemID(), entityID, "alice")))

	s.Run("by system in creation order", func() {
		ops, err := s.store.ListBySystem(ctx, systemID)
		s.Require().NoError(err)
		s.Require().Len(ops, 2)
		s.Equal("alice", ops[0].UID)
		s.Equal("bob", ops[1].UID)
	})

	s.Run("by entity spans systems", func() {
		ops, err := s.store.ListByEntity(ctx, entityID)
		s.Require().NoError(err)
		s.Len(ops, 2)
	})
}
