package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"idsync/pkg/platform/tx"
)

// Pool wraps a pgx connection pool and provides the per-item transaction
// boundary used by the sync runner.
type Pool struct {
	*pgxpool.Pool
}

// Connect opens a pgx pool and verifies connectivity.
// Returns nil if the DSN is empty (Postgres not configured).
func Connect(ctx context.Context, dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// InTx runs fn inside a transaction stored in the context, so stores that
// check tx.From participate in the same unit of work. Rolls back on error,
// commits otherwise.
func (p *Pool) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return pgx.BeginFunc(ctx, p.Pool, func(pgxTx pgx.Tx) error {
		return fn(tx.WithTx(ctx, pgxTx))
	})
}

// Querier is the subset of pgx operations stores use; satisfied by both the
// pool and a transaction, so stores transparently join a context transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFrom returns the context transaction when present, else the pool.
func (p *Pool) QuerierFrom(ctx context.Context) Querier {
	if pgxTx, ok := tx.From(ctx); ok {
		return pgxTx
	}
	return p.Pool
}

// IsUniqueViolation reports whether err is a unique constraint violation, so
// stores can translate it to their conflict sentinel.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
