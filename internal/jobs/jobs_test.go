package jobs

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(false))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	sqlxDB := sqlx.NewDb(db, "postgres")
	return New(sqlxDB), mock
}

func TestStoreStart(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`INSERT INTO job_metadata`).
		WithArgs("classify", nil, "dirbs classify --curr-date=20170101").
		WillReturnRows(sqlmock.NewRows([]string{"run_id"}).AddRow(int64(7)))

	runID, err := store.Start(context.Background(), "classify", nil, "dirbs classify --curr-date=20170101")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if runID != 7 {
		t.Errorf("runID = %d, want 7", runID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStoreSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE job_metadata SET end_time = now\(\), status = 'success'`).
		WithArgs("classify", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Success(context.Background(), "classify", 7); err != nil {
		t.Fatalf("Success() error: %v", err)
	}
}

func TestStoreFailureRecordsExceptionInfo(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE job_metadata SET end_time = now\(\), status = 'error', exception_info = \$1`).
		WithArgs("classify: boom", "classify", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Failure(context.Background(), "classify", 7, "classify: boom"); err != nil {
		t.Fatalf("Failure() error: %v", err)
	}
}

func TestStoreSuccessWrongRowCountIsInternalError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE job_metadata`).
		WithArgs("classify", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Success(context.Background(), "classify", 7)
	if err == nil {
		t.Fatal("expected error when zero rows affected")
	}
}

func TestStoreAnnotate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE job_metadata SET extra_metadata = extra_metadata \|\| \$1::jsonb`).
		WithArgs(`{"rows_processed":100}`, "import", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Annotate(context.Background(), "import", 3, map[string]any{"rows_processed": 100})
	if err != nil {
		t.Fatalf("Annotate() error: %v", err)
	}
}
