package main

import (
	"context"
	"flag"

	"github.com/dirbs/dirbs-core/internal/retention"
)

func runPrune(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs prune", flag.ExitOnError)
	common := bindCommon(fs)
	monthsRetention := fs.Int("months-retention", 0, "override data_retention.months_retention")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := bootstrap(ctx, "prune", nil, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()
	rc := sess.rc

	months := rc.Config.Retention.MonthsRetention
	if *monthsRetention != 0 {
		months = *monthsRetention
	}

	report, err := retention.Run(ctx, rc.Pools.Business, rc.Pools.Metadata, rc.Now(), months, rc.Config.Retention.JobMetadataRetention)
	runErr = err
	if err != nil {
		return err
	}

	var total int64
	for table, n := range report.RowsDeleted {
		if n > 0 {
			rc.Logger.Info("pruned historic table", "table", table, "rows_deleted", n)
		}
		total += n
	}
	rc.Logger.Info("prune complete", "rows_deleted", total, "jobs_deleted", report.JobsDeleted, "months_retention", months)
	return nil
}
