package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dirbs/dirbs-core/internal/classify"
	"github.com/dirbs/dirbs-core/internal/dbx"
	"github.com/dirbs/dirbs-core/internal/runctx"
)

func runClassify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dirbs classify", flag.ExitOnError)
	common := bindCommon(fs)
	noSafetyCheck := fs.Bool("no-safety-check", false, "bypass the max_allowed_matching_ratio guard")
	conditionsFlag := fs.String("conditions", "", "comma-separated condition labels to run (default: all configured)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := bootstrap(ctx, "classify", nil, common)
	if err != nil {
		return err
	}
	var runErr error
	defer func() { sess.finish(ctx, runErr) }()
	rc := sess.rc

	conds, err := classify.AllFromConfig(rc.Config.Conditions)
	if err != nil {
		runErr = err
		return err
	}
	if *conditionsFlag != "" {
		wanted := map[string]bool{}
		for _, l := range strings.Split(*conditionsFlag, ",") {
			wanted[strings.TrimSpace(l)] = true
		}
		var filtered []classify.Condition
		for _, c := range conds {
			if wanted[c.Label] {
				filtered = append(filtered, c)
			}
		}
		conds = filtered
	}
	if len(conds) == 0 {
		runErr = fmt.Errorf("no conditions selected to classify")
		return runErr
	}

	currDate := rc.Now().Format("20060102")
	observed, err := classify.ObservedCount(ctx, rc.Pools.Business)
	if err != nil {
		runErr = err
		return err
	}

	retrier := dbx.NewRetrier("classify", 3)
	amnesty := amnestyWindow(rc)

	tasks := make([]classify.ConditionTask, len(conds))
	for i, cond := range conds {
		cond := cond
		tasks[i] = classify.ConditionTask{
			Condition: cond,
			Run: func(ctx context.Context) error {
				return classifyOne(ctx, rc, retrier, cond, currDate, observed, amnesty, *noSafetyCheck)
			},
		}
	}

	maxWorkers := rc.Config.Multiprocessing.MaxLocalCPUs
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() / 2
	}
	outcomes := classify.RunAll(ctx, tasks, maxWorkers)

	var failed []string
	for _, o := range outcomes {
		if o.Err != nil {
			rc.Logger.Error(o.Err, "condition classification failed", "condition", o.Condition.Label)
			failed = append(failed, o.Condition.Label)
		}
	}
	if len(failed) > 0 {
		runErr = fmt.Errorf("conditions failed safety check or classification: %s", strings.Join(failed, ", "))
		return runErr
	}
	return nil
}

// amnestyWindow resolves rc.Config.Amnesty into a classify.AmnestyWindow,
// or nil when amnesty is disabled.
func amnestyWindow(rc runctx.RunContext) *classify.AmnestyWindow {
	a := rc.Config.Amnesty
	if !a.Enabled {
		return nil
	}
	return &classify.AmnestyWindow{Cutoff: a.AmnestyCutoff, End: a.AmnestyEndDate}
}

// classifyOne runs one condition's full matching-set -> safety-check ->
// reconcile -> apply cycle (spec.md §4.7). The matching set and safety
// check are computed before any lock is taken; reconcile and apply then
// run under the advisory lock "classify:<label>", which keeps two runs
// of the same condition apart but does not exclude the importers (they
// lock on their list type). Only Apply's writes go through the locked
// transaction; OpenRows and FirstSeen read through the pool.
func classifyOne(
	ctx context.Context,
	rc runctx.RunContext,
	retrier *dbx.Retrier,
	cond classify.Condition,
	currDate string,
	observedCount int,
	amnesty *classify.AmnestyWindow,
	bypassSafety bool,
) error {
	matching, err := classify.MatchingSet(ctx, rc.Pools.Business, cond, currDate)
	if err != nil {
		return err
	}

	if err := classify.CheckSafetyRatio(cond.Label, len(matching), observedCount, cond.MaxAllowedMatchingRatio, bypassSafety); err != nil {
		if rc.Metrics != nil {
			rc.Metrics.ClassificationSkips.WithLabelValues(cond.Label).Inc()
		}
		return err
	}

	return dbx.WithAdvisoryLock(ctx, rc.Pools.Business, "classify:"+cond.Label, func(ctx context.Context, tx pgx.Tx) error {
		openRows, err := classify.OpenRows(ctx, rc.Pools.Business, cond.Label)
		if err != nil {
			return err
		}

		imeis := make([]string, 0, len(matching))
		for imei := range matching {
			imeis = append(imeis, imei)
		}
		firstSeen, err := classify.FirstSeen(ctx, rc.Pools.Business, imeis)
		if err != nil {
			return err
		}

		runStart := rc.Now()
		rec := classify.Reconcile(cond, matching, openRows, runStart, amnesty, firstSeen)
		return retrier.Do(ctx, fmt.Sprintf("apply condition %s", cond.Label), func(ctx context.Context) error {
			return classify.Apply(ctx, tx, cond.Label, runStart, rec)
		})
	})
}
