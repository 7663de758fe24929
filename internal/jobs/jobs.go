// Package jobs implements the job-metadata store (spec.md §4.2,
// component C2), ported function-for-function from the original Python
// implementation (original_source/src/dirbs/metadata.py):
//
//	store_job_metadata               -> Store.Start
//	log_job_success                  -> Store.Success
//	log_job_failure                  -> Store.Failure
//	add_optional_job_metadata         -> Store.Annotate
//	add_time_metadata                -> Store.AnnotateTimestamp
//	query_for_command_runs           -> Store.Query
//	job_start_time_by_run_id         -> Store.StartTimeByRunID
//	most_recent_job_start_time_by_command -> Store.MostRecentStart
//
// Every method here issues its statement on the autocommit metadata
// connection (sqlx.DB, opened in autocommit mode by internal/dbx),
// never inside the caller's business transaction, so that a rolled-back
// business transaction never hides the fact that a run happened and
// failed (spec.md §4.2 contract).
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Status is the terminal or in-flight state of a job_metadata row.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Store is the job-metadata store, backed by the autocommit metadata
// connection.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-open autocommit sqlx connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Record mirrors one job_metadata row.
type Record struct {
	RunID         int64           `db:"run_id"`
	Command       string          `db:"command"`
	Subcommand    *string         `db:"subcommand"`
	DBUser        string          `db:"db_user"`
	CommandLine   string          `db:"command_line"`
	StartTime     time.Time       `db:"start_time"`
	EndTime       *time.Time      `db:"end_time"`
	Status        Status          `db:"status"`
	ExtraMetadata json.RawMessage `db:"extra_metadata"`
	ExceptionInfo *string         `db:"exception_info"`
}

// Start inserts a new running job_metadata row and returns its run_id.
func (s *Store) Start(ctx context.Context, command string, subcommand *string, commandLine string) (int64, error) {
	var runID int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO job_metadata(command, subcommand, db_user, command_line, start_time, status, extra_metadata)
		VALUES ($1, $2, current_user, $3, now(), 'running', '{}'::jsonb)
		RETURNING run_id`,
		command, subcommand, commandLine,
	).Scan(&runID)
	if err != nil {
		return 0, errs.NewTransientDbError("start job", err)
	}
	return runID, nil
}

// Success marks a run successful.
func (s *Store) Success(ctx context.Context, command string, runID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_metadata SET end_time = now(), status = 'success'
		WHERE command = $1 AND run_id = $2`, command, runID)
	return s.checkSingleRow(res, err, "mark job success")
}

// Failure marks a run failed, recording exceptionText in exception_info.
// Failure must never itself panic: it is called from recover() paths.
func (s *Store) Failure(ctx context.Context, command string, runID int64, exceptionText string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_metadata SET end_time = now(), status = 'error', exception_info = $1
		WHERE command = $2 AND run_id = $3`, exceptionText, command, runID)
	return s.checkSingleRow(res, err, "mark job failure")
}

func (s *Store) checkSingleRow(res interface {
	RowsAffected() (int64, error)
}, err error, operation string) error {
	if err != nil {
		return errs.NewTransientDbError(operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.NewTransientDbError(operation, err)
	}
	if n != 1 {
		return errs.NewInternalError("job_metadata", operation, fmt.Errorf("expected to affect 1 row, affected %d", n))
	}
	return nil
}

// Annotate merges patch into extra_metadata at the top level (JSONB `||`
// concat, matching add_optional_job_metadata); nested objects are not
// merged, a key in patch replaces the whole existing value. Idempotent:
// re-annotating the same key overwrites it.
func (s *Store) Annotate(ctx context.Context, command string, runID int64, patch map[string]any) error {
	payload, err := json.Marshal(patch)
	if err != nil {
		return errs.NewInternalError("job_metadata", "marshal annotate patch", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_metadata SET extra_metadata = extra_metadata || $1::jsonb
		WHERE command = $2 AND run_id = $3`, string(payload), command, runID)
	return s.checkSingleRow(res, err, "annotate job metadata")
}

// AnnotateTimestamp sets extra_metadata at the given JSON path to the
// current server time (jsonb_set, matching add_time_metadata).
func (s *Store) AnnotateTimestamp(ctx context.Context, command string, runID int64, path []string) error {
	pgPath := "{" + strings.Join(path, ",") + "}"
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_metadata SET extra_metadata = jsonb_set(extra_metadata, $1, to_jsonb(now()))
		WHERE command = $2 AND run_id = $3`, pgPath, command, runID)
	return s.checkSingleRow(res, err, "annotate job timestamp")
}

// QueryOptions filters Query's result set (spec.md §4.2 query op).
type QueryOptions struct {
	Command        string
	Subcommand     *string
	RunID          *int64
	SuccessfulOnly bool
	Limit          int
	Offset         int
}

// Query returns job_metadata rows most-recent-first, matching
// query_for_command_runs.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Record, error) {
	var sb strings.Builder
	sb.WriteString("SELECT run_id, command, subcommand, db_user, command_line, start_time, end_time, status, extra_metadata, exception_info FROM job_metadata WHERE command = $1")
	args := []any{opts.Command}

	if opts.SuccessfulOnly {
		sb.WriteString(" AND status = 'success'")
	}
	if opts.Subcommand != nil {
		args = append(args, *opts.Subcommand)
		sb.WriteString(fmt.Sprintf(" AND subcommand = $%d", len(args)))
	}
	if opts.RunID != nil {
		args = append(args, *opts.RunID)
		sb.WriteString(fmt.Sprintf(" AND run_id = $%d", len(args)))
	}
	sb.WriteString(" ORDER BY start_time DESC")
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	var records []Record
	if err := s.db.SelectContext(ctx, &records, sb.String(), args...); err != nil {
		return nil, errs.NewTransientDbError("query job metadata", err)
	}
	return records, nil
}

// StartTimeByRunID returns the start_time of the job with the given
// run_id, matching job_start_time_by_run_id.
func (s *Store) StartTimeByRunID(ctx context.Context, runID int64, successfulOnly bool) (*time.Time, error) {
	query := "SELECT start_time FROM job_metadata WHERE run_id = $1"
	if successfulOnly {
		query += " AND status = 'success'"
	}
	query += " ORDER BY start_time DESC LIMIT 1"

	var t time.Time
	err := s.db.GetContext(ctx, &t, query, runID)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, errs.NewTransientDbError("lookup job start time", err)
	}
	return &t, nil
}

// MostRecentStart returns the start_time of the most recent job matching
// command/subcommand (and, if successfulOnly, status='success'),
// matching most_recent_job_start_time_by_command.
func (s *Store) MostRecentStart(ctx context.Context, command string, subcommand *string, successfulOnly bool) (*time.Time, error) {
	var sb strings.Builder
	sb.WriteString("SELECT start_time FROM job_metadata WHERE command = $1")
	args := []any{command}
	if subcommand != nil {
		args = append(args, *subcommand)
		sb.WriteString(fmt.Sprintf(" AND subcommand = $%d", len(args)))
	}
	if successfulOnly {
		sb.WriteString(" AND status = 'success'")
	}
	sb.WriteString(" ORDER BY start_time DESC LIMIT 1")

	var t time.Time
	err := s.db.GetContext(ctx, &t, sb.String(), args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, errs.NewTransientDbError("lookup most recent job start time", err)
	}
	return &t, nil
}

// MostRecentSuccessfulRunID returns the run_id of the most recent
// successful job matching command/subcommand, used by listgen to
// default --base.
func (s *Store) MostRecentSuccessfulRunID(ctx context.Context, command string, subcommand *string) (*int64, error) {
	var sb strings.Builder
	sb.WriteString("SELECT run_id FROM job_metadata WHERE command = $1 AND status = 'success'")
	args := []any{command}
	if subcommand != nil {
		args = append(args, *subcommand)
		sb.WriteString(fmt.Sprintf(" AND subcommand = $%d", len(args)))
	}
	sb.WriteString(" ORDER BY start_time DESC LIMIT 1")

	var runID int64
	err := s.db.GetContext(ctx, &runID, sb.String(), args...)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, errs.NewTransientDbError("lookup most recent successful run id", err)
	}
	return &runID, nil
}
