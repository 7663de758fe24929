package classify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunAllCollectsAllOutcomes(t *testing.T) {
	tasks := []ConditionTask{
		{Condition: Condition{Label: "a"}, Run: func(ctx context.Context) error { return nil }},
		{Condition: Condition{Label: "b"}, Run: func(ctx context.Context) error { return errors.New("boom") }},
		{Condition: Condition{Label: "c"}, Run: func(ctx context.Context) error { return nil }},
	}
	outcomes := RunAll(context.Background(), tasks, 2)
	if len(outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(outcomes))
	}
	if outcomes[1].Err == nil {
		t.Error("expected outcome[1] to carry an error")
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Error("expected outcomes 0 and 2 to succeed")
	}
}

func TestRunAllRespectsConcurrencyLimit(t *testing.T) {
	const maxWorkers = 2
	var current, max int64
	tasks := make([]ConditionTask, 10)
	for i := range tasks {
		tasks[i] = ConditionTask{
			Condition: Condition{Label: "c"},
			Run: func(ctx context.Context) error {
				n := atomic.AddInt64(&current, 1)
				for {
					old := atomic.LoadInt64(&max)
					if n <= old || atomic.CompareAndSwapInt64(&max, old, n) {
						break
					}
				}
				atomic.AddInt64(&current, -1)
				return nil
			},
		}
	}
	RunAll(context.Background(), tasks, maxWorkers)
	if max > maxWorkers {
		t.Errorf("observed concurrency %d, want <= %d", max, maxWorkers)
	}
}

func TestRunAllOneTaskErrorDoesNotStopOthers(t *testing.T) {
	ran := make([]bool, 5)
	tasks := make([]ConditionTask, 5)
	for i := range tasks {
		i := i
		tasks[i] = ConditionTask{
			Condition: Condition{Label: "c"},
			Run: func(ctx context.Context) error {
				ran[i] = true
				if i == 2 {
					return errors.New("boom")
				}
				return nil
			},
		}
	}
	RunAll(context.Background(), tasks, 1)
	for i, r := range ran {
		if !r {
			t.Errorf("task %d did not run", i)
		}
	}
}
