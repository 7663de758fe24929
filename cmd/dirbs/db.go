package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dirbs/dirbs-core/internal/migrations"
	"github.com/dirbs/dirbs-core/internal/shard"
)

// schemaVersion is the schema version this binary was built against.
// `db check` compares it with the migration version goose has recorded
// (migrations.Check) and exits non-zero when they differ;
// schema_metadata is not consulted. Bumped alongside new entries under
// internal/migrations/sql.
const schemaVersion = 6

func runDB(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs db", flag.ExitOnError)
	common := bindCommon(fs)
	numShards := fs.Int("num-physical-shards", 4, "target physical shard count (repartition only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: dirbs db [flags] {check|upgrade|install|repartition}")
	}
	sub := rest[0]

	sess, err := bootstrap(ctx, "db", &sub, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()
	rc := sess.rc

	switch sub {
	case "check":
		status, err := migrations.Check(ctx, rc.Pools.Metadata.DB)
		if err != nil {
			runErr = err
			return err
		}
		rc.Logger.Info("schema status", "current_version", status.Current, "pending_migrations", status.Pending, "built_against", schemaVersion)
		if status.Current != schemaVersion {
			runErr = fmt.Errorf("schema version mismatch: database is at %d, binary built against %d", status.Current, schemaVersion)
			return runErr
		}
		return nil

	case "upgrade":
		if err := migrations.Upgrade(ctx, rc.Pools.Metadata.DB); err != nil {
			runErr = err
			return err
		}
		rc.Logger.Info("schema upgraded")
		return nil

	case "install":
		if err := migrations.Install(ctx, rc.Pools.Metadata.DB); err != nil {
			runErr = err
			return err
		}
		rc.Logger.Info("schema installed")
		return nil

	case "repartition":
		if err := shard.Repartition(ctx, rc.Pools.Business, *numShards); err != nil {
			runErr = err
			return err
		}
		rc.Logger.Info("repartition complete", "num_physical_shards", *numShards, "tables", len(shard.ShardedTables))
		return nil

	default:
		runErr = fmt.Errorf("unknown db subcommand %q", sub)
		return runErr
	}
}
