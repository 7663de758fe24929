package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dirbs/dirbs-core/internal/listgen"
	"github.com/dirbs/dirbs-core/internal/runctx"
)

func runListgen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs listgen", flag.ExitOnError)
	common := bindCommon(fs)
	base := fs.Int64("base", 0, "base run_id to diff against (default: most recent successful listgen run)")
	noFullLists := fs.Bool("no-full-lists", false, "skip writing the full-form CSVs, delta only")
	noCleanup := fs.Bool("no-cleanup", false, "keep the output directory when writing a list fails")
	disableSanity := fs.Bool("disable-sanity-checks", false, "bypass the run-over-run delta sanity guard")
	conditionsFlag := fs.String("conditions", "", "comma-separated condition labels the blacklist/notifications reasons are restricted to (default: all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: dirbs listgen [flags] <output_dir>")
	}
	outputDir := rest[0]

	var reasonFilter map[string]bool
	if *conditionsFlag != "" {
		reasonFilter = map[string]bool{}
		for _, l := range strings.Split(*conditionsFlag, ",") {
			reasonFilter[strings.TrimSpace(l)] = true
		}
	}

	sess, err := bootstrap(ctx, "listgen", nil, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()
	rc := sess.rc

	baseRunID := *base
	if baseRunID == 0 {
		prev, err := sess.jobs.MostRecentSuccessfulRunID(ctx, "listgen", nil)
		if err != nil {
			runErr = err
			return err
		}
		if prev != nil {
			baseRunID = *prev
		}
	}
	var baseStart *time.Time
	if baseRunID != 0 {
		baseStart, err = sess.jobs.StartTimeByRunID(ctx, baseRunID, true)
		if err != nil {
			runErr = err
			return err
		}
	}

	runDate := rc.Now()
	lookback := rc.Config.ListGeneration.LookbackDays
	excludePaired := !rc.Config.ListGeneration.RestrictExceptionsListToBlacklistedIMEIs

	current, err := loadBlacklist(ctx, rc, runDate, reasonFilter)
	if err != nil {
		runErr = err
		return err
	}
	var previous []listgen.BlacklistRow
	if baseStart != nil {
		previous, err = loadBlacklist(ctx, rc, *baseStart, reasonFilter)
		if err != nil {
			runErr = err
			return err
		}
	}
	deltas := listgen.ComputeBlacklistDelta(current, previous, baseRunID)

	if err := listgen.SanityCheck(len(deltas), len(previous), rc.Config.ListGeneration.MaxSanityDeltaFraction, *disableSanity); err != nil {
		runErr = err
		return err
	}

	blacklisted := map[string]bool{}
	for _, r := range current {
		blacklisted[r.ImeiNorm] = true
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		runErr = fmt.Errorf("create output directory %s: %w", outputDir, err)
		return runErr
	}

	ops := operatorIDs(rc)
	var baseRunIDPtr *int64
	if baseRunID != 0 {
		baseRunIDPtr = &baseRunID
	}
	manifest := listgen.NewManifest(rc.RunID, baseRunIDPtr, runDate.Format("20060102T150405Z"), ops)

	writers := []func() error{
		func() error {
			return emitList(outputDir, manifest, "blacklist", *noFullLists,
				func(w *os.File) error { return listgen.WriteBlacklistCSV(w, current) }, len(current),
				func(w *os.File) error { return listgen.WriteBlacklistDeltaCSV(w, deltas) }, len(deltas))
		},
	}

	exceptions, err := listgen.QueryExceptions(ctx, rc.Pools.Business, runDate,
		rc.Config.ListGeneration.RestrictExceptionsListToBlacklistedIMEIs, rc.Config.ListGeneration.IncludeBarredIMEIsInExceptionsList)
	if err != nil {
		runErr = err
		return err
	}
	listgen.SortExceptions(exceptions)
	var prevExceptions []listgen.ExceptionRow
	if baseStart != nil {
		prevExceptions, err = listgen.QueryExceptions(ctx, rc.Pools.Business, *baseStart,
			rc.Config.ListGeneration.RestrictExceptionsListToBlacklistedIMEIs, rc.Config.ListGeneration.IncludeBarredIMEIsInExceptionsList)
		if err != nil {
			runErr = err
			return err
		}
		listgen.SortExceptions(prevExceptions)
	}
	exceptionDeltas := listgen.ComputeExceptionsDelta(exceptions, prevExceptions)

	notifCounts := map[string]int{}
	for _, op := range ops {
		op := op
		currNotif, err := listgen.QueryNotifications(ctx, rc.Pools.Business, op, runDate, lookback, excludePaired)
		if err != nil {
			runErr = err
			return err
		}
		listgen.SortNotifications(currNotif)
		notifCounts[op] = len(currNotif)
		var prevNotif []listgen.NotificationRow
		if baseStart != nil {
			prevNotif, err = listgen.QueryNotifications(ctx, rc.Pools.Business, op, *baseStart, lookback, excludePaired)
			if err != nil {
				runErr = err
				return err
			}
			listgen.SortNotifications(prevNotif)
		}
		notifDeltas := listgen.ComputeNotificationDelta(currNotif, prevNotif, blacklisted)

		writers = append(writers,
			func() error {
				return emitList(outputDir, manifest, fmt.Sprintf("notifications_list_%s", op), *noFullLists,
					func(w *os.File) error { return listgen.WriteNotificationsCSV(w, currNotif) }, len(currNotif),
					func(w *os.File) error { return listgen.WriteNotificationsDeltaCSV(w, notifDeltas) }, len(notifDeltas))
			},
			func() error {
				return emitList(outputDir, manifest, fmt.Sprintf("exceptions_list_%s", op), *noFullLists,
					func(w *os.File) error { return listgen.WriteExceptionsCSV(w, exceptions) }, len(exceptions),
					func(w *os.File) error { return listgen.WriteExceptionsDeltaCSV(w, exceptionDeltas) }, len(exceptionDeltas))
			},
		)
	}

	for _, write := range writers {
		if err := write(); err != nil {
			runErr = err
			if !*noCleanup {
				_ = os.RemoveAll(outputDir)
			}
			return err
		}
	}

	if rc.Metrics != nil {
		rc.Metrics.ListgenRowsWritten.WithLabelValues("", "blacklist").Add(float64(len(current)))
		for _, op := range ops {
			rc.Metrics.ListgenRowsWritten.WithLabelValues(op, "notifications_list").Add(float64(notifCounts[op]))
			rc.Metrics.ListgenRowsWritten.WithLabelValues(op, "exceptions_list").Add(float64(len(exceptions)))
		}
	}

	manifestPath := filepath.Join(outputDir, "manifest.json")
	mf, err := os.Create(manifestPath)
	if err != nil {
		runErr = fmt.Errorf("create manifest %s: %w", manifestPath, err)
		return runErr
	}
	defer mf.Close()
	if err := manifest.Write(mf); err != nil {
		runErr = err
		return err
	}

	rc.Logger.Info("listgen complete", "output_dir", outputDir, "base_run_id", baseRunID,
		"blacklist_rows", len(current), "delta_rows", len(deltas), "operators", len(ops))
	return nil
}

// loadBlacklist queries the blacklist as of asOf and, if reasonFilter is
// set, restricts each row's reasons to the configured condition labels,
// dropping rows left with none (spec.md §4.8: "--conditions" narrows
// which conditions' reasons appear in the output).
func loadBlacklist(ctx context.Context, rc runctx.RunContext, asOf time.Time, reasonFilter map[string]bool) ([]listgen.BlacklistRow, error) {
	rows, err := listgen.QueryBlacklist(ctx, rc.Pools.Business, asOf)
	if err != nil {
		return nil, err
	}
	if reasonFilter != nil {
		filtered := rows[:0]
		for _, r := range rows {
			var reasons []string
			for _, reason := range r.Reasons {
				if reasonFilter[reason] {
					reasons = append(reasons, reason)
				}
			}
			if len(reasons) > 0 {
				r.Reasons = reasons
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	listgen.SortBlacklist(rows)
	return rows, nil
}

// emitList writes name's full-form CSV (unless skipFull) and delta-form
// CSV, recording both in manifest.
func emitList(
	dir string, manifest *listgen.Manifest, name string, skipFull bool,
	writeFull func(*os.File) error, fullCount int,
	writeDelta func(*os.File) error, deltaCount int,
) error {
	if !skipFull {
		if err := writeListgenCSV(dir, name+".csv", manifest, writeFull, fullCount); err != nil {
			return err
		}
	}
	return writeListgenCSV(dir, name+"_delta.csv", manifest, writeDelta, deltaCount)
}

func writeListgenCSV(dir, name string, manifest *listgen.Manifest, write func(*os.File) error, rowCount int) error {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	manifest.Checksum(name, data)
	manifest.Count(name, rowCount)
	return nil
}

// operatorIDs lists the operator_ids configured via region ownership,
// the set listgen emits a per-operator notifications/exceptions CSV for.
func operatorIDs(rc runctx.RunContext) []string {
	ops := make([]string, 0, len(rc.Config.Region.Operators))
	for op := range rc.Config.Region.Operators {
		ops = append(ops, op)
	}
	return ops
}
