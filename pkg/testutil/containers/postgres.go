//go:build integration

package containers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
}

// NewPostgresContainer starts a PostgreSQL container and applies the given
// schema statements.
func NewPostgresContainer(t *testing.T, schema string) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("idsync_test"),
		tcpostgres.WithUsername("idsync"),
		tcpostgres.WithPassword("idsync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pc := &PostgresContainer{Container: container, DSN: dsn}
	if schema != "" {
		pc.exec(t, schema)
	}
	return pc
}

// TruncateTables empties the named tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(t *testing.T, tables ...string) {
	t.Helper()
	p.exec(t, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE")
}

func (p *PostgresContainer) exec(t *testing.T, sql string) {
	t.Helper()
	_, _, err := p.Container.Exec(context.Background(),
		[]string{"psql", "-U", "idsync", "-d", "idsync_test", "-c", sql})
	if err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
}
