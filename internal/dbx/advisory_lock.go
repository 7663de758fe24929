package dbx

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryLockKey derives the bigint key for pg_advisory_xact_lock from
// a lock name, matching spec.md §4.6's "a named advisory lock on
// (list_type)" and §5's classification/listgen shared locks.
func AdvisoryLockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// WithAdvisoryLock runs fn inside the single transaction that holds a
// transaction-scoped advisory lock keyed by name, so only one import per
// list-type (or one classify run per condition) may run at once, and so fn's statements (staging DDL, copy, delta apply) share
// the locked session rather than racing it on a second connection. The
// lock is released automatically when the transaction commits or rolls
// back.
func WithAdvisoryLock(ctx context.Context, pool *pgxpool.Pool, name string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", AdvisoryLockKey(name)); err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
