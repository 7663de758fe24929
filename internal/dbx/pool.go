// Package dbx models explicit connection ownership (spec.md §9: "Model
// connection ownership explicitly: an import run owns two connections
// (business + autocommit metadata); they are acquired and released with
// guaranteed release on all exit paths").
package dbx

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" database/sql driver used by sqlx

	"github.com/dirbs/dirbs-core/internal/config"
)

// Pools bundles the two connections a run owns: Business (inside the
// run's transactions) and Metadata (always autocommit). internal/jobs
// records runs on Metadata so that a rolled-back business transaction
// never erases the record that the run happened and failed;
// internal/catalog, internal/migrations and internal/retention also use
// it.
type Pools struct {
	Business *pgxpool.Pool
	Metadata *sqlx.DB
}

// DSN builds the libpq connection string shared by the pooled business
// connection, the autocommit metadata connection and any one-off direct
// connection (e.g. internal/delta's LISTEN connection).
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// Open acquires both pools. Callers must defer Close on every exit path,
// including error paths, per spec.md §5 cancellation guarantees.
func Open(ctx context.Context, cfg config.DBConfig) (*Pools, error) {
	dsn := DSN(cfg)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("dbx: parse business pool config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxDBConnections)
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	business, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("dbx: open business pool: %w", err)
	}

	metadata, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		business.Close()
		return nil, fmt.Errorf("dbx: open metadata connection: %w", err)
	}
	// The metadata connection must autocommit: every statement it issues
	// takes effect immediately, independent of any business transaction
	// that might later roll back.
	metadata.SetMaxOpenConns(2)
	metadata.SetConnMaxLifetime(5 * time.Minute)

	return &Pools{Business: business, Metadata: metadata}, nil
}

// Close releases both pools. Safe to call multiple times.
func (p *Pools) Close() {
	if p.Business != nil {
		p.Business.Close()
	}
	if p.Metadata != nil {
		_ = p.Metadata.Close()
	}
}
