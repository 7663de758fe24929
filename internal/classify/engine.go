package classify

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ConditionTask bundles everything one condition needs: matching-set
// resolution, safety check and reconciliation/apply are all the
// caller's concern (cmd/dirbs's classify command wires these against
// the database); Run only bounds concurrency and collects outcomes.
type ConditionTask struct {
	Condition Condition
	Run       func(ctx context.Context) error
}

// Outcome is one condition's classification result, surfaced to the
// caller for logging/metrics even on failure.
type Outcome struct {
	Condition Condition
	Err       error
}

// RunAll evaluates every task, up to maxWorkers concurrently (spec.md
// §4.7 "Parallelism: conditions are independent; multiple may execute
// in parallel up to a configured worker budget"). One task's error
// (e.g. a ClassificationSafetyError) never cancels the others; each
// condition's outcome is independent.
func RunAll(ctx context.Context, tasks []ConditionTask, maxWorkers int) []Outcome {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	outcomes := make([]Outcome, len(tasks))
	sem := make(chan struct{}, maxWorkers)
	g, gctx := errgroup.WithContext(ctx)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = Outcome{Condition: task.Condition, Err: task.Run(gctx)}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
