package threshold

import (
	"context"
	"testing"
)

func TestRatioCheckWithinBoundsPasses(t *testing.T) {
	c := RatioCheck{Reason: "null_imsi", Count: 1, Total: 1000, MaxRatio: 0.01}
	if err := c.Evaluate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRatioCheckExceedingBoundsFails(t *testing.T) {
	c := RatioCheck{Reason: "leading_zero_imei", Count: 50, Total: 1000, MaxRatio: 0.01}
	if err := c.Evaluate(); err == nil {
		t.Fatal("expected error for ratio exceeding max")
	}
}

func TestRatioCheckZeroTotalPasses(t *testing.T) {
	c := RatioCheck{Reason: "x", Count: 0, Total: 0, MaxRatio: 0}
	if err := c.Evaluate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunRatioChecksReportsAllViolations(t *testing.T) {
	checks := []RatioCheck{
		{Reason: "a", Count: 0, Total: 10, MaxRatio: 0.1},
		{Reason: "b", Count: 9, Total: 10, MaxRatio: 0.1},
		{Reason: "c", Count: 8, Total: 10, MaxRatio: 0.1},
	}
	var violated []string
	err := RunRatioChecks(context.Background(), checks, func(c RatioCheck) {
		violated = append(violated, c.Reason)
	})
	if err == nil {
		t.Fatal("expected an error from RunRatioChecks")
	}
	if len(violated) != 2 {
		t.Fatalf("violated = %v, want 2 entries", violated)
	}
}

func TestSizeVariationWithinAbsoluteBound(t *testing.T) {
	sv := SizeVariation{Prev: 1000, Cur: 1010, Absolute: 50, Percent: 0.0}
	if err := sv.Evaluate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSizeVariationExceedsBothBounds(t *testing.T) {
	sv := SizeVariation{Prev: 1000, Cur: 2000, Absolute: 10, Percent: 0.05}
	if err := sv.Evaluate(); err == nil {
		t.Fatal("expected error: size variation exceeds bound")
	}
}

func TestSizeVariationSkippedWhenNoBaseline(t *testing.T) {
	sv := SizeVariation{Prev: 0, Cur: 5000, Absolute: 10, Percent: 0.01}
	if err := sv.Evaluate(); err != nil {
		t.Errorf("expected no error when there is no prior baseline, got %v", err)
	}
}

func TestSizeVariationUsesPercentWhenLarger(t *testing.T) {
	sv := SizeVariation{Prev: 10000, Cur: 10400, Absolute: 10, Percent: 0.05}
	if err := sv.Evaluate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDeltaSanityWithinBounds(t *testing.T) {
	d := DeltaSanity{RemoveNotLive: 1, AddAlreadyLive: 0, UpdateNotLive: 0, TotalRows: 1000, MaxRatio: 0.01}
	if err := d.Evaluate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDeltaSanityExceedsBounds(t *testing.T) {
	d := DeltaSanity{RemoveNotLive: 20, AddAlreadyLive: 20, UpdateNotLive: 10, TotalRows: 100, MaxRatio: 0.1}
	if err := d.Evaluate(); err == nil {
		t.Fatal("expected error for inconsistent delta rows exceeding ratio")
	}
}
