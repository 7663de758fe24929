package listgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// blacklistRowScan mirrors one blacklist query result row before
// reasons are unwrapped from their Postgres text[] encoding.
type blacklistRowScan struct {
	ImeiNorm  string
	BlockDate time.Time
	Reasons   pq.StringArray
}

// QueryBlacklist reads the current blacklist for a run: every imei_norm
// with at least one open blocking classification_state row whose
// block_date <= runDate (spec.md §4.8), with reasons aggregated across
// all matching conditions via array_agg on the database side. When an
// IMEI has multiple open blocking rows with different block_dates, the
// earliest one wins (min(cs.block_date)) — the most conservative choice
// for enforcement, per the block_date tie-break decision in
// SPEC_FULL.md.
// Only open classification rows are read; runDate bounds block_date and
// is not applied as time travel. StartRunID/EndRunID are left zero: the
// caller diffs two such results by imei_norm (ComputeBlacklistDelta)
// and does not read the persisted `blacklist` table.
func QueryBlacklist(ctx context.Context, pool *pgxpool.Pool, runDate time.Time) ([]BlacklistRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT cs.imei_norm,
		       min(cs.block_date) AS block_date,
		       array_agg(DISTINCT c.reason ORDER BY c.reason) AS reasons
		FROM classification_state cs
		JOIN conditions c ON c.label = cs.cond_name
		WHERE cs.end_date IS NULL
		  AND c.blocking
		  AND cs.block_date IS NOT NULL
		  AND cs.block_date <= $1
		GROUP BY cs.imei_norm
		ORDER BY cs.imei_norm`,
		runDate)
	if err != nil {
		return nil, errs.NewTransientDbError("query blacklist", err)
	}
	defer rows.Close()

	var out []BlacklistRow
	for rows.Next() {
		var scan blacklistRowScan
		if err := rows.Scan(&scan.ImeiNorm, &scan.BlockDate, &scan.Reasons); err != nil {
			return nil, errs.NewTransientDbError("scan blacklist row", err)
		}
		out = append(out, BlacklistRow{
			ImeiNorm:  scan.ImeiNorm,
			BlockDate: scan.BlockDate,
			Reasons:   []string(scan.Reasons),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewTransientDbError("iterate blacklist rows", err)
	}
	return out, nil
}

// notificationRowScan mirrors one notifications_list query result row
// before reasons are unwrapped from their Postgres text[] encoding.
type notificationRowScan struct {
	ImeiNorm  string
	Imsi      string
	Msisdn    string
	BlockDate time.Time
	Reasons   pq.StringArray
}

// QueryNotifications reads operatorID's notifications list (spec.md
// §4.8: "IMEIs with at least one open blocking row whose block_date >
// run_date, joined with observed (imsi, msisdn) pairs within
// lookback_days on that operator. Excludes any IMEI that is live-paired
// with the observed IMSI (unless restrict_exceptions_list_to_blacklisted_imeis
// overrides)"). excludePaired applies the live-pairing exclusion; when
// it is false, live-paired IMEIs are kept.
func QueryNotifications(ctx context.Context, pool *pgxpool.Pool, operatorID string, runDate time.Time, lookbackDays int, excludePaired bool) ([]NotificationRow, error) {
	query := `
		SELECT cs.imei_norm,
		       t.imsi,
		       t.msisdn,
		       min(cs.block_date) AS block_date,
		       array_agg(DISTINCT c.reason ORDER BY c.reason) AS reasons
		FROM classification_state cs
		JOIN conditions c ON c.label = cs.cond_name
		JOIN monthly_network_triplets_per_mno t
		  ON t.imei_norm = cs.imei_norm AND t.operator_id = $1 AND t.end_date IS NULL
		     AND t.date >= ($2::date - ($3 || ' days')::interval)
		WHERE cs.end_date IS NULL
		  AND c.blocking
		  AND cs.block_date IS NOT NULL
		  AND cs.block_date > $2`
	if excludePaired {
		query += `
		  AND NOT EXISTS (
		      SELECT 1 FROM historic_pairing_list p
		      WHERE p.end_date IS NULL AND p.imei_norm = cs.imei_norm AND p.imsi = t.imsi)`
	}
	query += `
		GROUP BY cs.imei_norm, t.imsi, t.msisdn
		ORDER BY cs.imei_norm, t.imsi, t.msisdn`

	rows, err := pool.Query(ctx, query, operatorID, runDate, lookbackDays)
	if err != nil {
		return nil, errs.NewTransientDbError("query notifications list", err)
	}
	defer rows.Close()

	var out []NotificationRow
	for rows.Next() {
		var scan notificationRowScan
		if err := rows.Scan(&scan.ImeiNorm, &scan.Imsi, &scan.Msisdn, &scan.BlockDate, &scan.Reasons); err != nil {
			return nil, errs.NewTransientDbError("scan notifications row", err)
		}
		out = append(out, NotificationRow{
			ImeiNorm:  scan.ImeiNorm,
			Imsi:      scan.Imsi,
			Msisdn:    scan.Msisdn,
			BlockDate: scan.BlockDate,
			Reasons:   []string(scan.Reasons),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewTransientDbError("iterate notifications rows", err)
	}
	return out, nil
}

// QueryExceptions reads operatorID's exceptions list as of asOf (spec.md
// §4.8: "(imei, imsi) pairs from live pairing list, optionally restricted
// to blacklisted IMEIs, optionally augmented with barred IMEIs per
// config"). asOf is applied as SCD-2 time travel over historic_pairing_list
// (and, when includeBarred, historic_barred_list), so that calling QueryExceptions with a base run's start time yields that
// run's exceptions list rather than always "now" — the delta computation
// needs two genuinely different snapshots to diff.
func QueryExceptions(ctx context.Context, pool *pgxpool.Pool, asOf time.Time, restrictToBlacklisted, includeBarred bool) ([]ExceptionRow, error) {
	query := `
		SELECT p.imei, p.imsi FROM historic_pairing_list p
		WHERE p.start_date <= $1 AND (p.end_date IS NULL OR p.end_date > $1)`
	if restrictToBlacklisted {
		query += `
		  AND EXISTS (
		      SELECT 1 FROM classification_state cs
		      JOIN conditions c ON c.label = cs.cond_name
		      WHERE cs.imei_norm = p.imei_norm AND cs.end_date IS NULL AND c.blocking
		        AND cs.block_date IS NOT NULL AND cs.block_date <= $1)`
	}
	if includeBarred {
		query += `
		UNION
		SELECT b.imei, p2.imsi
		FROM historic_barred_list b
		JOIN historic_pairing_list p2 ON p2.imei_norm = b.imei_norm
		  AND p2.start_date <= $1 AND (p2.end_date IS NULL OR p2.end_date > $1)
		WHERE b.start_date <= $1 AND (b.end_date IS NULL OR b.end_date > $1)`
	}

	rows, err := pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, errs.NewTransientDbError("query exceptions list", err)
	}
	defer rows.Close()

	var out []ExceptionRow
	for rows.Next() {
		var r ExceptionRow
		if err := rows.Scan(&r.Imei, &r.Imsi); err != nil {
			return nil, errs.NewTransientDbError("scan exceptions row", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewTransientDbError("iterate exceptions rows", err)
	}
	return out, nil
}
