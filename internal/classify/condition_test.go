package classify

import (
	"testing"
	"time"
)

func TestCheckSafetyRatioWithinBounds(t *testing.T) {
	if err := CheckSafetyRatio("local_stolen", 1, 1000, 0.1, false); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckSafetyRatioExceedsBounds(t *testing.T) {
	err := CheckSafetyRatio("local_stolen", 500, 1000, 0.1, false)
	if err == nil {
		t.Fatal("expected safety error")
	}
}

func TestCheckSafetyRatioBypassed(t *testing.T) {
	if err := CheckSafetyRatio("local_stolen", 999, 1000, 0.01, true); err != nil {
		t.Errorf("expected bypass to suppress error, got %v", err)
	}
}

func TestCheckSafetyRatioZeroObservedIsNoop(t *testing.T) {
	if err := CheckSafetyRatio("c", 0, 0, 0.1, false); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReconcileNewMatchInsertsOpenRow(t *testing.T) {
	runStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	cond := Condition{Label: "local_stolen", Blocking: true, GracePeriodDays: 0}
	rec := Reconcile(cond, map[string]bool{"64220297727231": true}, nil, runStart, nil, nil)

	if len(rec.ToInsert) != 1 {
		t.Fatalf("len(ToInsert) = %d, want 1", len(rec.ToInsert))
	}
	row := rec.ToInsert[0]
	if row.ImeiNorm != "64220297727231" || row.BlockDate == nil || !row.BlockDate.Equal(runStart) {
		t.Errorf("unexpected row: %+v", row)
	}
}

func TestReconcileInformationalConditionLeavesBlockDateNil(t *testing.T) {
	runStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	cond := Condition{Label: "informational", Blocking: false}
	rec := Reconcile(cond, map[string]bool{"123": true}, nil, runStart, nil, nil)
	if rec.ToInsert[0].BlockDate != nil {
		t.Error("expected nil block_date for non-blocking condition")
	}
}

func TestReconcileAlreadyOpenIsNoop(t *testing.T) {
	runStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	cond := Condition{Label: "local_stolen", Blocking: true}
	open := map[string]Row{"123": {ImeiNorm: "123", CondName: "local_stolen"}}
	rec := Reconcile(cond, map[string]bool{"123": true}, open, runStart, nil, nil)
	if len(rec.ToInsert) != 0 {
		t.Errorf("expected no inserts for already-open match, got %d", len(rec.ToInsert))
	}
	if len(rec.ToClose) != 0 {
		t.Errorf("expected no closes, got %d", len(rec.ToClose))
	}
}

func TestReconcileUnmatchedNonStickyCloses(t *testing.T) {
	runStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	cond := Condition{Label: "local_stolen", Blocking: true, Sticky: false}
	open := map[string]Row{"123": {ImeiNorm: "123", CondName: "local_stolen"}}
	rec := Reconcile(cond, map[string]bool{}, open, runStart, nil, nil)
	if len(rec.ToClose) != 1 || rec.ToClose[0] != "123" {
		t.Errorf("ToClose = %v, want [123]", rec.ToClose)
	}
}

func TestReconcileUnmatchedStickyPreservesRow(t *testing.T) {
	runStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	cond := Condition{Label: "local_stolen", Blocking: true, Sticky: true}
	open := map[string]Row{"123": {ImeiNorm: "123", CondName: "local_stolen"}}
	rec := Reconcile(cond, map[string]bool{}, open, runStart, nil, nil)
	if len(rec.ToClose) != 0 {
		t.Errorf("expected sticky condition to preserve row, got closes: %v", rec.ToClose)
	}
}

func TestReconcileAmnestyGrantedDefersBlockDate(t *testing.T) {
	runStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC)
	amnesty := &AmnestyWindow{Cutoff: cutoff, End: end}
	firstSeen := map[string]time.Time{"123": time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)}

	cond := Condition{Label: "local_stolen", Blocking: true, AmnestyEligible: true}
	rec := Reconcile(cond, map[string]bool{"123": true}, nil, runStart, amnesty, firstSeen)

	if len(rec.ToInsert) != 1 {
		t.Fatalf("len(ToInsert) = %d", len(rec.ToInsert))
	}
	row := rec.ToInsert[0]
	if !row.AmnestyGranted {
		t.Error("expected amnesty_granted = true")
	}
	if row.BlockDate != nil {
		t.Error("expected block_date deferred (nil) while amnesty window is open")
	}
}

func TestReconcileAmnestyNotEligibleWhenSeenAfterCutoff(t *testing.T) {
	runStart := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	amnesty := &AmnestyWindow{
		Cutoff: time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	firstSeen := map[string]time.Time{"123": time.Date(2016, 12, 1, 0, 0, 0, 0, time.UTC)}

	cond := Condition{Label: "local_stolen", Blocking: true, AmnestyEligible: true}
	rec := Reconcile(cond, map[string]bool{"123": true}, nil, runStart, amnesty, firstSeen)

	row := rec.ToInsert[0]
	if row.AmnestyGranted {
		t.Error("expected amnesty_granted = false when first seen after cutoff")
	}
	if row.BlockDate == nil {
		t.Error("expected block_date to be populated when amnesty is not granted")
	}
}

func TestReconcileAmnestyExpiredPatchesBlockDateOnOpenRow(t *testing.T) {
	end := time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC)
	amnesty := &AmnestyWindow{Cutoff: time.Date(2016, 6, 1, 0, 0, 0, 0, time.UTC), End: end}
	cond := Condition{Label: "local_stolen", Blocking: true, AmnestyEligible: true, GracePeriodDays: 5}

	// The row is already open from an earlier run, still amnesty-granted
	// and still deferring block_date, and the IMEI is still matching.
	open := map[string]Row{
		"123": {ImeiNorm: "123", CondName: "local_stolen", AmnestyGranted: true, BlockDate: nil},
	}

	t.Run("amnesty window still open: no patch, no insert", func(t *testing.T) {
		runStart := end.AddDate(0, 0, -1)
		rec := Reconcile(cond, map[string]bool{"123": true}, open, runStart, amnesty, nil)
		if len(rec.ToInsert) != 0 {
			t.Errorf("expected no inserts, got %d", len(rec.ToInsert))
		}
		if len(rec.ToUpdateBlockDate) != 0 {
			t.Errorf("expected no block_date patch before amnesty.End, got %v", rec.ToUpdateBlockDate)
		}
	})

	t.Run("amnesty window closed: block_date is patched in", func(t *testing.T) {
		runStart := end.AddDate(0, 0, 1)
		rec := Reconcile(cond, map[string]bool{"123": true}, open, runStart, amnesty, nil)
		if len(rec.ToInsert) != 0 {
			t.Errorf("expected no inserts for an already-open row, got %d", len(rec.ToInsert))
		}
		if len(rec.ToUpdateBlockDate) != 1 {
			t.Fatalf("len(ToUpdateBlockDate) = %d, want 1", len(rec.ToUpdateBlockDate))
		}
		patch := rec.ToUpdateBlockDate[0]
		if patch.ImeiNorm != "123" {
			t.Errorf("ImeiNorm = %q, want 123", patch.ImeiNorm)
		}
		want := end.AddDate(0, 0, cond.GracePeriodDays)
		if !patch.BlockDate.Equal(want) {
			t.Errorf("BlockDate = %v, want %v", patch.BlockDate, want)
		}
	})

	t.Run("row already has a block_date: no patch", func(t *testing.T) {
		bd := end.AddDate(0, 0, -10)
		alreadyBlocked := map[string]Row{
			"123": {ImeiNorm: "123", CondName: "local_stolen", AmnestyGranted: true, BlockDate: &bd},
		}
		runStart := end.AddDate(0, 0, 1)
		rec := Reconcile(cond, map[string]bool{"123": true}, alreadyBlocked, runStart, amnesty, nil)
		if len(rec.ToUpdateBlockDate) != 0 {
			t.Errorf("expected no patch once block_date is already set, got %v", rec.ToUpdateBlockDate)
		}
	})
}
