// Package staging implements the staging loader (spec.md §4.4,
// component C4): one unlogged, autovacuum-off relation per import run,
// bulk-loaded via pgx.CopyFrom, with importer-specific post-copy
// derivation hooks. Grounded on
// original_source/src/dirbs/importer/gsma_data_importer.py's staging
// DDL/post-copy pattern (CREATE UNLOGGED TABLE ... WITH
// (autovacuum_enabled = false), then an UPDATE invoking a SQL-side
// derivation function).
package staging

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Column is one staging-table column definition.
type Column struct {
	Name string
	Type string // Postgres type, e.g. "TEXT", "INTEGER", "JSONB"
}

// PostCopyHook runs one derivation statement against the staging table
// after a batch of rows has landed, e.g. populating imei_norm /
// virt_imei_shard or a GSMA rat_bitmask.
type PostCopyHook struct {
	Name string
	SQL  string // templated with the staging table name via fmt %s
}

// Spec describes one importer's staging relation.
type Spec struct {
	TableName     string
	Columns       []Column
	PostCopyHooks []PostCopyHook
}

// NormalizeAndShardHooks returns the two post-copy hooks every
// IMEI-keyed importer applies (spec.md §4.4: "imei_norm =
// normalize_imei(imei); virt_imei_shard = virt_shard(imei_norm)"). The
// SQL-side normalize_imei/calc_virt_imei_shard functions are installed
// by internal/migrations and must agree with internal/imeinorm and
// internal/shard.
func NormalizeAndShardHooks(imeiColumn string) []PostCopyHook {
	return []PostCopyHook{
		{
			Name: "normalize_imei",
			SQL:  fmt.Sprintf(`UPDATE %%s SET imei_norm = normalize_imei(%s)`, imeiColumn),
		},
		{
			Name: "virt_imei_shard",
			SQL:  `UPDATE %s SET virt_imei_shard = calc_virt_imei_shard(imei_norm)`,
		},
	}
}

// GSMARatBitmaskHook derives rat_bitmask from the bands column via the
// SQL-side translate_bands_to_rat_bitmask function (spec.md §4.4: "GSMA:
// compute rat_bitmask from the bands string"; see internal/migrations
// for the function body).
var GSMARatBitmaskHook = PostCopyHook{
	Name: "rat_bitmask",
	SQL:  `UPDATE %s SET rat_bitmask = translate_bands_to_rat_bitmask(bands)`,
}

// Loader creates, populates and drops per-run staging tables on the
// business connection pool.
type Loader struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Loader {
	return &Loader{pool: pool}
}

// buildCreateStmt renders the CREATE UNLOGGED TABLE statement for spec.
func buildCreateStmt(spec Spec) string {
	var cols []string
	for _, c := range spec.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", c.Name, c.Type))
	}
	return fmt.Sprintf(
		"CREATE UNLOGGED TABLE %s (row_id BIGSERIAL, %s) WITH (autovacuum_enabled = false)",
		spec.TableName, strings.Join(cols, ", "))
}

// Create issues the CREATE UNLOGGED TABLE statement for spec, scoped to
// tx so it is visible only within the caller's transaction/session.
func (l *Loader) Create(ctx context.Context, tx pgx.Tx, spec Spec) error {
	if _, err := tx.Exec(ctx, buildCreateStmt(spec)); err != nil {
		return errs.NewTransientDbError("create staging table", err)
	}
	return nil
}

// CopyBatch bulk-loads rows (each a slice matching the order of
// columnNames) into the staging table via the Postgres binary COPY
// protocol.
func (l *Loader) CopyBatch(ctx context.Context, tx pgx.Tx, spec Spec, columnNames []string, rows [][]any) (int64, error) {
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{spec.TableName},
		columnNames,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, errs.NewTransientDbError("copy batch to staging", err)
	}
	return n, nil
}

// RunPostCopyHooks executes every configured post-copy derivation
// statement in order.
func (l *Loader) RunPostCopyHooks(ctx context.Context, tx pgx.Tx, spec Spec) error {
	for _, hook := range spec.PostCopyHooks {
		if _, err := tx.Exec(ctx, buildHookStmt(hook, spec)); err != nil {
			return errs.NewTransientDbError(fmt.Sprintf("run post-copy hook %s", hook.Name), err)
		}
	}
	return nil
}

func buildHookStmt(hook PostCopyHook, spec Spec) string {
	return fmt.Sprintf(hook.SQL, spec.TableName)
}

// Drop removes the staging table. Staging lives only for the run
// (spec.md §4.4); it is a regular table, so callers drop it before
// committing if they do not want it to outlive the transaction.
func (l *Loader) Drop(ctx context.Context, tx pgx.Tx, spec Spec) error {
	if _, err := tx.Exec(ctx, buildDropStmt(spec)); err != nil {
		return errs.NewTransientDbError("drop staging table", err)
	}
	return nil
}

func buildDropStmt(spec Spec) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", spec.TableName)
}
