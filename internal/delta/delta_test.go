package delta

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func fullSnapshotSpec() Spec {
	return Spec{
		HistoricTable:  "historic_stolen_list",
		StagingTable:   "staging_stolen_list",
		PKColumns:      []string{"imei_norm"},
		PayloadColumns: []string{"status"},
	}
}

func deltaModeSpec() Spec {
	s := fullSnapshotSpec()
	s.DeltaMode = true
	return s
}

// TestApplyFullSnapshotSplitsAddRemoveUpdateIndependently pins the bug
// where Added/Removed/Updated were derived by subtracting the close and
// insert row counts from one another: with simultaneous adds, removes
// and updates, closed-inserted does not recover the true per-kind
// counts. Apply must report the counts straight from its own
// ADD/REMOVE/UPDATE classification, not back out of RowsAffected.
func TestApplyFullSnapshotSplitsAddRemoveUpdateIndependently(t *testing.T) {
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("pgxmock.NewConn(): %v", err)
	}
	defer mock.Close(context.Background())

	// REMOVE=5, UPDATE=2, ADD=3: closeSQL affects REMOVE+UPDATE=7 rows,
	// insertSQL affects ADD+UPDATE=5 rows. A naive closed-inserted split
	// would report Removed=2, Updated=5, Added=0 — all wrong.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(pgxmock.NewRows([]string{"added", "removed", "updated"}).AddRow(int64(3), int64(5), int64(2)))
	mock.ExpectExec(`UPDATE`).WillReturnResult(pgxmock.NewResult("UPDATE", 7))
	mock.ExpectExec(`INSERT`).WillReturnResult(pgxmock.NewResult("INSERT", 5))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin(): %v", err)
	}

	got, err := Apply(context.Background(), tx, fullSnapshotSpec(), time.Now())
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit(): %v", err)
	}

	want := Result{Added: 3, Removed: 5, Updated: 2}
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestApplyDeltaModeCountsByChangeType exercises the delta-mode branch,
// which derives its counts straight from staging.change_type rather
// than from RowsAffected.
func TestApplyDeltaModeCountsByChangeType(t *testing.T) {
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("pgxmock.NewConn(): %v", err)
	}
	defer mock.Close(context.Background())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(pgxmock.NewRows([]string{"added", "removed", "updated"}).AddRow(int64(4), int64(1), int64(6)))
	mock.ExpectExec(`UPDATE`).WillReturnResult(pgxmock.NewResult("UPDATE", 7))
	mock.ExpectExec(`INSERT`).WillReturnResult(pgxmock.NewResult("INSERT", 10))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin(): %v", err)
	}

	got, err := Apply(context.Background(), tx, deltaModeSpec(), time.Now())
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit(): %v", err)
	}

	want := Result{Added: 4, Removed: 1, Updated: 6}
	if got != want {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestQuoteIdents(t *testing.T) {
	got := quoteIdents([]string{"imei_norm", "imsi"})
	want := `"imei_norm", "imsi"`
	if got != want {
		t.Errorf("quoteIdents() = %q, want %q", got, want)
	}
}

func TestJoinOnSingleColumn(t *testing.T) {
	got := joinOn("h", "s", []string{"imei_norm"})
	want := `h."imei_norm" = s."imei_norm"`
	if got != want {
		t.Errorf("joinOn() = %q, want %q", got, want)
	}
}

func TestJoinOnCompositeKey(t *testing.T) {
	got := joinOn("h", "s", []string{"imei_norm", "imsi"})
	want := `h."imei_norm" = s."imei_norm" AND h."imsi" = s."imsi"`
	if got != want {
		t.Errorf("joinOn() = %q, want %q", got, want)
	}
}

func TestPayloadDiffersNoColumnsIsFalse(t *testing.T) {
	if got := payloadDiffers("h", "s", nil); got != "FALSE" {
		t.Errorf("payloadDiffers() = %q, want FALSE", got)
	}
}

func TestPayloadDiffersBuildsOrClauses(t *testing.T) {
	got := payloadDiffers("h", "s", []string{"status"})
	want := `h."status" IS DISTINCT FROM s."status"`
	if got != want {
		t.Errorf("payloadDiffers() = %q, want %q", got, want)
	}
}

func TestQualifyAll(t *testing.T) {
	got := qualifyAll("s", []string{"imei_norm", "status"})
	want := `s."imei_norm", s."status"`
	if got != want {
		t.Errorf("qualifyAll() = %q, want %q", got, want)
	}
}
