package classify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// ObservedCount returns the number of distinct observed IMEIs (spec.md
// §4.7 step 2's safety-ratio denominator).
func ObservedCount(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM network_imeis").Scan(&n); err != nil {
		return 0, errs.NewTransientDbError("count observed imeis", err)
	}
	return n, nil
}

// MatchingSet executes cond's combined matching-set query (spec.md
// §4.7 step 1) and returns the matched imei_norm values.
func MatchingSet(ctx context.Context, pool *pgxpool.Pool, cond Condition, currDate string) (map[string]bool, error) {
	q, err := BuildMatchingSetQuery(cond, currDate)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, errs.NewTransientDbError("query matching set", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var imei string
		if err := rows.Scan(&imei); err != nil {
			return nil, errs.NewTransientDbError("scan matching set row", err)
		}
		out[imei] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewTransientDbError("iterate matching set rows", err)
	}
	return out, nil
}

// OpenRows returns condLabel's currently-open classification_state rows,
// keyed by imei_norm.
func OpenRows(ctx context.Context, pool *pgxpool.Pool, condLabel string) (map[string]Row, error) {
	rows, err := pool.Query(ctx, `
		SELECT imei_norm, cond_name, start_date, end_date, block_date, amnesty_granted
		FROM classification_state WHERE cond_name = $1 AND end_date IS NULL`, condLabel)
	if err != nil {
		return nil, errs.NewTransientDbError("query open classification rows", err)
	}
	defer rows.Close()

	out := map[string]Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ImeiNorm, &r.CondName, &r.StartDate, &r.EndDate, &r.BlockDate, &r.AmnestyGranted); err != nil {
			return nil, errs.NewTransientDbError("scan classification row", err)
		}
		out[r.ImeiNorm] = r
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewTransientDbError("iterate classification rows", err)
	}
	return out, nil
}

// FirstSeen returns network_imeis.first_seen for every imei_norm in
// imeis, used for amnesty-eligibility checks (spec.md §4.7 step 4).
func FirstSeen(ctx context.Context, pool *pgxpool.Pool, imeis []string) (map[string]time.Time, error) {
	if len(imeis) == 0 {
		return map[string]time.Time{}, nil
	}
	rows, err := pool.Query(ctx, `SELECT imei_norm, first_seen FROM network_imeis WHERE imei_norm = ANY($1)`, imeis)
	if err != nil {
		return nil, errs.NewTransientDbError("query first-seen timestamps", err)
	}
	defer rows.Close()

	out := map[string]time.Time{}
	for rows.Next() {
		var imei string
		var t time.Time
		if err := rows.Scan(&imei, &t); err != nil {
			return nil, errs.NewTransientDbError("scan first-seen row", err)
		}
		out[imei] = t
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewTransientDbError("iterate first-seen rows", err)
	}
	return out, nil
}

// Apply persists a Reconciliation inside tx: inserts the new open rows,
// closes the ones no longer matching, and patches block_date onto rows
// whose deferred amnesty window has closed (spec.md §4.7 step 3-4).
func Apply(ctx context.Context, tx pgx.Tx, condLabel string, runStart time.Time, rec Reconciliation) error {
	for _, row := range rec.ToInsert {
		if _, err := tx.Exec(ctx, `
			INSERT INTO classification_state(imei_norm, cond_name, start_date, end_date, block_date, amnesty_granted)
			VALUES ($1, $2, $3, NULL, $4, $5)`,
			row.ImeiNorm, condLabel, row.StartDate, row.BlockDate, row.AmnestyGranted); err != nil {
			return errs.NewTransientDbError("insert classification row", err)
		}
	}
	if len(rec.ToClose) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE classification_state SET end_date = $1
			WHERE cond_name = $2 AND imei_norm = ANY($3) AND end_date IS NULL`,
			runStart, condLabel, rec.ToClose); err != nil {
			return errs.NewTransientDbError("close classification rows", err)
		}
	}
	for _, u := range rec.ToUpdateBlockDate {
		if _, err := tx.Exec(ctx, `
			UPDATE classification_state SET block_date = $1
			WHERE cond_name = $2 AND imei_norm = $3 AND end_date IS NULL AND block_date IS NULL`,
			u.BlockDate, condLabel, u.ImeiNorm); err != nil {
			return errs.NewTransientDbError("patch classification row block_date", err)
		}
	}
	return nil
}
