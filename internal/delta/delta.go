// Package delta implements the delta applier (spec.md §4.6,
// component C6) — the central SCD-2 mechanism every importer drives:
// compute ADD/REMOVE/UPDATE against the live historic rows, close the
// superseded rows, insert the new ones, all inside one transaction
// held under a per-list-type advisory lock (internal/dbx.WithAdvisoryLock).
package delta

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Spec declares one importer's historic/staging table pair and key
// shape (spec.md §4.6: "a primary key (list-specific) and a payload
// (remaining columns) are declared").
type Spec struct {
	HistoricTable  string
	StagingTable   string
	PKColumns      []string
	PayloadColumns []string
	// DeltaMode is true when staging carries an explicit change_type
	// column; false for full-snapshot mode (spec.md §4.6).
	DeltaMode bool
	// MaterializedView, if non-empty, is refreshed after apply (spec.md
	// §4.6 step 4, e.g. "gsma_data" after historic_gsma_data changes).
	MaterializedView string
}

// Result reports the row counts the apply step touched, matching the
// ADD/REMOVE/UPDATE sets of spec.md §4.6 step 1.
type Result struct {
	Added   int64
	Removed int64
	Updated int64
}

func quoteIdents(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = pgx.Identifier{n}.Sanitize()
	}
	return strings.Join(out, ", ")
}

func joinOn(alias1, alias2 string, pk []string) string {
	var clauses []string
	for _, col := range pk {
		id := pgx.Identifier{col}.Sanitize()
		clauses = append(clauses, fmt.Sprintf("%s.%s = %s.%s", alias1, id, alias2, id))
	}
	return strings.Join(clauses, " AND ")
}

func payloadDiffers(alias1, alias2 string, payload []string) string {
	var clauses []string
	for _, col := range payload {
		id := pgx.Identifier{col}.Sanitize()
		clauses = append(clauses, fmt.Sprintf("%s.%s IS DISTINCT FROM %s.%s", alias1, id, alias2, id))
	}
	if len(clauses) == 0 {
		return "FALSE"
	}
	return strings.Join(clauses, " OR ")
}

// Apply runs the full three-step algorithm of spec.md §4.6 inside tx.
func Apply(ctx context.Context, tx pgx.Tx, spec Spec, now time.Time) (Result, error) {
	hist := pgx.Identifier{spec.HistoricTable}.Sanitize()
	stage := pgx.Identifier{spec.StagingTable}.Sanitize()
	pkCols := quoteIdents(spec.PKColumns)
	on := joinOn("h", "s", spec.PKColumns)

	var closeSQL, insertSQL, countSQL string
	if spec.DeltaMode {
		closeSQL = fmt.Sprintf(`
			UPDATE %s h SET end_date = $1
			WHERE h.end_date IS NULL AND EXISTS (
				SELECT 1 FROM %s s WHERE %s AND s.change_type IN ('remove', 'update')
			)`, hist, stage, on)
		insertSQL = fmt.Sprintf(`
			INSERT INTO %s (%s, start_date, end_date)
			SELECT %s, $1, NULL FROM %s s WHERE s.change_type IN ('add', 'update')`,
			hist, strings.Join([]string{pkCols, quoteIdents(spec.PayloadColumns)}, ", "),
			qualifyAll("s", append(append([]string{}, spec.PKColumns...), spec.PayloadColumns...)),
			stage)
		// Delta mode carries the ADD/REMOVE/UPDATE split directly on
		// staging, so the counts come straight from change_type.
		countSQL = fmt.Sprintf(`
			SELECT count(*) FILTER (WHERE s.change_type = 'add'),
			       count(*) FILTER (WHERE s.change_type = 'remove'),
			       count(*) FILTER (WHERE s.change_type = 'update')
			FROM %s s`, stage)
	} else {
		diff := payloadDiffers("h", "s", spec.PayloadColumns)
		closeSQL = fmt.Sprintf(`
			UPDATE %s h SET end_date = $1
			WHERE h.end_date IS NULL AND (
				NOT EXISTS (SELECT 1 FROM %s s WHERE %s)
				OR EXISTS (SELECT 1 FROM %s s WHERE %s AND (%s))
			)`, hist, stage, on, stage, on, diff)
		insertSQL = fmt.Sprintf(`
			INSERT INTO %s (%s, start_date, end_date)
			SELECT %s, $1, NULL FROM %s s
			WHERE NOT EXISTS (
				SELECT 1 FROM %s h WHERE %s AND h.end_date IS NULL
					AND NOT (%s)
			)`,
			hist, strings.Join([]string{pkCols, quoteIdents(spec.PayloadColumns)}, ", "),
			qualifyAll("s", append(append([]string{}, spec.PKColumns...), spec.PayloadColumns...)),
			stage, hist, on, diff)
		// Full-snapshot mode has no change_type column, so ADD/REMOVE/
		// UPDATE are distinguished by whether a staging row's key exists
		// among the currently-open historic rows and, if so, whether its
		// payload differs. This must run before closeSQL mutates
		// h.end_date, or "currently open" would already reflect the
		// post-apply state.
		countSQL = fmt.Sprintf(`
			SELECT
				(SELECT count(*) FROM %s s WHERE NOT EXISTS (
					SELECT 1 FROM %s h WHERE %s AND h.end_date IS NULL)),
				(SELECT count(*) FROM %s h WHERE h.end_date IS NULL AND NOT EXISTS (
					SELECT 1 FROM %s s WHERE %s)),
				(SELECT count(*) FROM %s s WHERE EXISTS (
					SELECT 1 FROM %s h WHERE %s AND h.end_date IS NULL AND (%s)))`,
			stage, hist, on,
			hist, stage, on,
			stage, hist, on, diff)
	}

	var added, removed, updated int64
	if err := tx.QueryRow(ctx, countSQL).Scan(&added, &removed, &updated); err != nil {
		return Result{}, errs.NewTransientDbError("count ADD/REMOVE/UPDATE sets", err)
	}

	if _, err := tx.Exec(ctx, closeSQL, now); err != nil {
		return Result{}, errs.NewTransientDbError("close superseded historic rows", err)
	}
	if _, err := tx.Exec(ctx, insertSQL, now); err != nil {
		return Result{}, errs.NewTransientDbError("insert new historic rows", err)
	}

	if spec.MaterializedView != "" {
		mv := pgx.Identifier{spec.MaterializedView}.Sanitize()
		if _, err := tx.Exec(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", mv)); err != nil {
			return Result{}, errs.NewTransientDbError("refresh materialized view", err)
		}
	}

	return Result{Added: added, Removed: removed, Updated: updated}, nil
}

func qualifyAll(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = fmt.Sprintf("%s.%s", alias, pgx.Identifier{c}.Sanitize())
	}
	return strings.Join(out, ", ")
}
