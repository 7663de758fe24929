package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/dirbs/dirbs-core/internal/jobs"
)

// runReport implements `dirbs report` (spec.md §6): lists job_metadata
// runs for a command, optionally narrowed by subcommand/run_id and by a
// jq expression over each run's extra_metadata.
func runReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs report", flag.ExitOnError)
	common := bindCommon(fs)
	command := fs.String("command", "", "job command to report on (import, classify, listgen, ...)")
	subcommand := fs.String("subcommand", "", "restrict to a specific subcommand (e.g. an import list_type)")
	runID := fs.Int64("run-id", 0, "restrict to a single run_id")
	successfulOnly := fs.Bool("successful-only", false, "restrict to successful runs")
	limit := fs.Int("limit", 20, "max rows to return")
	filterExpr := fs.String("filter", "", "jq expression over each run's extra_metadata; only matching runs are printed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *command == "" {
		return fmt.Errorf("usage: dirbs report --command=<command> [flags]")
	}

	var filter *gojq.Code
	if *filterExpr != "" {
		q, err := gojq.Parse(*filterExpr)
		if err != nil {
			return fmt.Errorf("parse --filter: %w", err)
		}
		code, err := gojq.Compile(q)
		if err != nil {
			return fmt.Errorf("compile --filter: %w", err)
		}
		filter = code
	}

	sess, err := bootstrap(ctx, "report", nil, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()
	rc := sess.rc

	opts := jobs.QueryOptions{
		Command:        *command,
		SuccessfulOnly: *successfulOnly,
		Limit:          *limit,
	}
	if *subcommand != "" {
		opts.Subcommand = subcommand
	}
	if *runID != 0 {
		opts.RunID = runID
	}

	records, err := sess.jobs.Query(ctx, opts)
	runErr = err
	if err != nil {
		return err
	}

	matched := 0
	for _, r := range records {
		if filter != nil {
			ok, err := matchesMetadataFilter(filter, r.ExtraMetadata)
			if err != nil {
				runErr = fmt.Errorf("evaluate --filter against run %d: %w", r.RunID, err)
				return runErr
			}
			if !ok {
				continue
			}
		}
		matched++
		rc.Logger.Info("job run", "run_id", r.RunID, "command", r.Command, "subcommand", r.Subcommand,
			"status", r.Status, "start_time", r.StartTime, "end_time", r.EndTime, "exception", r.ExceptionInfo)
	}

	rc.Logger.Info("report complete", "command", *command, "rows", len(records), "matched_filter", matched)
	return nil
}

// matchesMetadataFilter decodes raw (a job_metadata.extra_metadata
// JSONB blob) and runs filter against it.
func matchesMetadataFilter(filter *gojq.Code, raw json.RawMessage) (bool, error) {
	var decoded any
	if len(raw) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(raw, &decoded); err != nil {
		return false, err
	}

	iter := filter.Run(decoded)
	for {
		v, hasNext := iter.Next()
		if !hasNext {
			return false, nil
		}
		if err, ok := v.(error); ok {
			return false, err
		}
		if truthy(v) {
			return true, nil
		}
	}
}
