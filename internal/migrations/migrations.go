// Package migrations embeds and applies the DIRBS Core schema (spec.md
// §3, §4.1, §4.6), one goose migration per original
// original_source/src/dirbs/schema_migrators/vNN_upgrade.py plus the
// base sharded-table DDL and the SQL-side derivation functions
// (calc_virt_imei_shard, normalize_imei, is_malformed_imei,
// translate_bands_to_rat_bitmask) that internal/shard, internal/staging
// and internal/dimensions assume are installed.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/dirbs/dirbs-core/internal/errs"
)

//go:embed sql/*.sql
var embedded embed.FS

func provider(db *sql.DB) (*goose.Provider, error) {
	migrationsFS, err := fs.Sub(embedded, "sql")
	if err != nil {
		return nil, errs.NewInternalError("migrations", "scope embedded migration filesystem", err)
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrationsFS)
	if err != nil {
		return nil, errs.NewConfigError("construct migration provider", err)
	}
	return p, nil
}

// Check reports the current schema version and how many pending
// migrations remain, matching `dirbs db check` (spec.md §6).
type Status struct {
	Current int64
	Pending int
}

func Check(ctx context.Context, db *sql.DB) (Status, error) {
	p, err := provider(db)
	if err != nil {
		return Status{}, err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return Status{}, errs.NewTransientDbError("get schema version", err)
	}
	sources := p.ListSources()
	pending := 0
	for _, s := range sources {
		if s.Version > current {
			pending++
		}
	}
	return Status{Current: current, Pending: pending}, nil
}

// Upgrade applies every pending migration in order, matching
// `dirbs db upgrade`.
func Upgrade(ctx context.Context, db *sql.DB) error {
	p, err := provider(db)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return errs.NewTransientDbError("upgrade schema", err)
	}
	return nil
}

// Install is Upgrade run against a database with no schema at all yet,
// matching `dirbs db install` (spec.md §6): it is the same operation,
// named separately only because the CLI distinguishes "bring a fresh
// database up to date" from "bring an existing one forward."
func Install(ctx context.Context, db *sql.DB) error {
	if err := Upgrade(ctx, db); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}
