package listgen

import "testing"

func TestSanityCheckWithinBounds(t *testing.T) {
	if err := SanityCheck(5, 1000, 0.1, false); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSanityCheckExceedsBounds(t *testing.T) {
	if err := SanityCheck(500, 1000, 0.1, false); err == nil {
		t.Fatal("expected sanity error")
	}
}

func TestSanityCheckDisabled(t *testing.T) {
	if err := SanityCheck(999, 1000, 0.01, true); err != nil {
		t.Errorf("expected disabled check to pass, got %v", err)
	}
}

func TestSanityCheckNoPreviousRunIsNoop(t *testing.T) {
	if err := SanityCheck(100, 0, 0.01, false); err != nil {
		t.Errorf("unexpected error when there is no previous run: %v", err)
	}
}

func TestSanityCheckAllReportsFirstFailureWithName(t *testing.T) {
	checks := map[string]struct {
		DeltaCount       int
		PreviousRunCount int
	}{
		"cardinal/blacklist": {DeltaCount: 500, PreviousRunCount: 1000},
	}
	err := SanityCheckAll(checks, 0.1, false)
	if err == nil {
		t.Fatal("expected error")
	}
}
