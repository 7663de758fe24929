package shard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// ShardedTables lists the IMEI-keyed base tables internal/migrations
// installs with a virt_imei_shard column (spec.md §4.1: "virt range
// [0,99] is partitioned into N physical shards"). Repartition rebuilds
// each one's physical child tables independently.
var ShardedTables = []string{
	"historic_stolen_list",
	"historic_registration_list",
	"historic_golden_list",
	"historic_barred_list",
	"historic_device_association_list",
	"historic_pairing_list",
	"historic_whitelist",
	"monthly_network_triplets_per_mno",
}

// Repartition rebuilds every table in ShardedTables's physical child
// tables under a new numPhysical boundary set. Each base table is
// rebuilt inside its own transaction (spec.md §4.1 repartition
// contract: "atomically per base table; must be idempotent and
// tolerate interruption (all-or-nothing at base-table granularity)").
// A child table is created with CREATE TABLE IF NOT EXISTS and
// TRUNCATEd before reload, so re-running Repartition after an
// interruption simply redoes the copy for whichever tables did not
// reach commit.
func Repartition(ctx context.Context, pool *pgxpool.Pool, numPhysical int) error {
	shards, err := Partition(numPhysical)
	if err != nil {
		return err
	}
	for _, base := range ShardedTables {
		if err := repartitionTable(ctx, pool, base, shards); err != nil {
			return fmt.Errorf("repartition %s: %w", base, err)
		}
	}
	return nil
}

func repartitionTable(ctx context.Context, pool *pgxpool.Pool, base string, shards []Physical) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errs.NewTransientDbError("begin repartition transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range shards {
		child := ChildTableName(base, p)
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (LIKE %s INCLUDING ALL)`, child, base)); err != nil {
			return errs.NewTransientDbError("create child table "+child, err)
		}
		if err := copyShardRange(ctx, tx, base, child, p); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.NewTransientDbError("commit repartition transaction", err)
	}
	return nil
}

// copyShardRange truncates child and reloads it from base's rows
// falling in p's virtual shard range, making the rebuild idempotent
// under re-run.
func copyShardRange(ctx context.Context, tx pgx.Tx, base, child string, p Physical) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, child)); err != nil {
		return errs.NewTransientDbError("truncate child table "+child, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s SELECT * FROM %s WHERE virt_imei_shard BETWEEN $1 AND $2`, child, base),
		p.Lo, p.Hi); err != nil {
		return errs.NewTransientDbError("load child table "+child, err)
	}
	return nil
}
