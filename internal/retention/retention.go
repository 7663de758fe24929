// Package retention implements `dirbs prune` (spec.md §6): deleting
// historic rows and job_metadata rows once they have been closed (or, for
// job_metadata, completed) longer than the configured retention window.
// Grounded on the SCD-2 "end_date IS NULL means live" convention every
// historic_* table in internal/migrations already carries: a row is
// eligible for deletion only once it has been non-live for the whole
// window, never while it is still the current record.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// historicTables lists every SCD-2 table internal/migrations installs
// with start_date/end_date columns.
var historicTables = []string{
	"historic_stolen_list",
	"historic_registration_list",
	"historic_golden_list",
	"historic_barred_list",
	"historic_barred_tac_list",
	"historic_subscribers_registration_list",
	"historic_device_association_list",
	"historic_pairing_list",
	"historic_whitelist",
	"historic_gsma_data",
	"monthly_network_triplets_per_mno",
	"classification_state",
}

// Report summarizes one prune run's deletions, by table.
type Report struct {
	RowsDeleted map[string]int64
	JobsDeleted int64
}

// Run deletes rows closed (end_date not null) before now minus
// monthsRetention from every historic table, and job_metadata rows whose
// end_time is before now minus jobMetadataRetentionMonths.
func Run(ctx context.Context, pool *pgxpool.Pool, metadata *sqlx.DB, now time.Time, monthsRetention, jobMetadataRetentionMonths int) (Report, error) {
	report := Report{RowsDeleted: map[string]int64{}}

	cutoff := cutoffDate(now, monthsRetention)
	for _, table := range historicTables {
		n, err := pruneHistoricTable(ctx, pool, table, cutoff)
		if err != nil {
			return report, err
		}
		report.RowsDeleted[table] = n
	}

	jobCutoff := cutoffDate(now, jobMetadataRetentionMonths)
	res, err := metadata.ExecContext(ctx, `DELETE FROM job_metadata WHERE end_time IS NOT NULL AND end_time < $1`, jobCutoff)
	if err != nil {
		return report, errs.NewTransientDbError("prune job_metadata", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return report, errs.NewTransientDbError("prune job_metadata", err)
	}
	report.JobsDeleted = n

	return report, nil
}

// cutoffDate returns the instant months before now that a row's
// end_date/end_time must fall before to be eligible for deletion.
func cutoffDate(now time.Time, months int) time.Time {
	return now.AddDate(0, -months, 0)
}

func pruneHistoricTable(ctx context.Context, pool *pgxpool.Pool, table string, cutoff time.Time) (int64, error) {
	tag, err := pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE end_date IS NOT NULL AND end_date < $1`, table), cutoff)
	if err != nil {
		return 0, errs.NewTransientDbError("prune "+table, err)
	}
	return tag.RowsAffected(), nil
}
