package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"

	"github.com/dirbs/dirbs-core/internal/csvschema"
	"github.com/dirbs/dirbs-core/internal/dbx"
	"github.com/dirbs/dirbs-core/internal/delta"
	"github.com/dirbs/dirbs-core/internal/errs"
	"github.com/dirbs/dirbs-core/internal/prevalidate"
	"github.com/dirbs/dirbs-core/internal/runctx"
	"github.com/dirbs/dirbs-core/internal/staging"
	"github.com/dirbs/dirbs-core/internal/threshold"
)

const defaultBatchLines = 100000

// Input bundles what Run needs to know about the uploaded file.
type Input struct {
	// Filename is the upload's stem (no extension), checked against the
	// importer's FilenameRule and, for zips, against the archive member's
	// own stem (spec.md §4.3 step 2).
	Filename string
	// Zip, if non-nil, is unwrapped via prevalidate.ExtractCSV. Exactly
	// one of Zip/CSV must be set.
	Zip *zip.Reader
	// CSV is a raw, non-archived CSV reader. Exactly one of Zip/CSV must
	// be set.
	CSV io.Reader
	// DeltaMode is true when the upload carries a change_type column
	// (spec.md §4.3 step 3, §6).
	DeltaMode bool
	// BatchLines overrides the batch size prevalidate.SplitFile uses;
	// zero means defaultBatchLines.
	BatchLines int
}

// Report summarizes one completed import run.
type Report struct {
	RowsRead int
	Delta    delta.Result
}

// Run executes the full pre-validate → stage → threshold-guard →
// delta-apply pipeline (spec.md §4, components C3-C6) for one importer
// Definition against one uploaded file, inside the single transaction
// that holds def.ListType's advisory lock (spec.md §4.6: "a named
// advisory lock on (list_type)" so only one import per list type runs
// at once).
func Run(ctx context.Context, rc runctx.RunContext, def Definition, in Input) (Report, error) {
	if in.BatchLines <= 0 {
		in.BatchLines = defaultBatchLines
	}

	if err := def.FilenameRule.Validate(in.Filename, rc.Now()); err != nil {
		return Report{}, err
	}

	raw, err := readInput(in)
	if err != nil {
		return Report{}, err
	}

	schema := def.Schema
	if in.DeltaMode {
		schema = csvschema.DeltaSchema(schema)
	}
	rowsRead, err := schema.ValidateAll(bytes.NewReader(raw), 0)
	if err != nil {
		return Report{}, err
	}

	batches, err := prevalidate.SplitFile(bytes.NewReader(raw), in.BatchLines)
	if err != nil {
		return Report{}, err
	}

	constants := map[string]string{}
	if def.OperatorIDColumn != "" {
		opID, ok := def.FilenameRule.Prefix(in.Filename)
		if !ok {
			return Report{}, errs.NewPrevalidationError("filename", "derive operator id",
				fmt.Errorf("cannot derive %s from filename %q", def.OperatorIDColumn, in.Filename))
		}
		constants[def.OperatorIDColumn] = opID
	}

	rawCols := def.rawCSVColumns()
	columnNames := append([]string{}, rawCols...)
	if def.OperatorIDColumn != "" {
		columnNames = append(columnNames, def.OperatorIDColumn)
	}
	if in.DeltaMode {
		columnNames = append(columnNames, "change_type")
	}

	stagingTable := fmt.Sprintf("staging_%s_%d", def.ListType, rc.RunID)
	stageSpec := def.stagingSpec(stagingTable)
	if in.DeltaMode {
		stageSpec.Columns = append(stageSpec.Columns, staging.Column{Name: "change_type", Type: "TEXT"})
	}
	loader := staging.New(rc.Pools.Business)
	deltaSpec := def.deltaSpec(stagingTable, in.DeltaMode)

	var result delta.Result
	err = dbx.WithAdvisoryLock(ctx, rc.Pools.Business, def.ListType, func(ctx context.Context, tx pgx.Tx) error {
		if err := loader.Create(ctx, tx, stageSpec); err != nil {
			return err
		}

		for _, b := range batches {
			rows, err := parseBatch(b, columnNames, constants)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				continue
			}
			if _, err := loader.CopyBatch(ctx, tx, stageSpec, columnNames, rows); err != nil {
				return err
			}
		}

		if err := loader.RunPostCopyHooks(ctx, tx, stageSpec); err != nil {
			return err
		}

		prevCount, curCount, err := countRows(ctx, tx, def.HistoricTable, stagingTable)
		if err != nil {
			return err
		}
		sv := threshold.SizeVariation{
			Prev:     prevCount,
			Cur:      curCount,
			Absolute: int64(rc.Config.ImportThresholds.ImportSizeVariationAbsolute),
			Percent:  rc.Config.ImportThresholds.ImportSizeVariationPercent,
		}
		if err := sv.Evaluate(); err != nil {
			return err
		}

		result, err = delta.Apply(ctx, tx, deltaSpec, rc.Now())
		if err != nil {
			return err
		}

		for _, view := range def.DependentViews {
			id := pgx.Identifier{view}.Sanitize()
			if _, err := tx.Exec(ctx, fmt.Sprintf("REFRESH MATERIALIZED VIEW CONCURRENTLY %s", id)); err != nil {
				return errs.NewTransientDbError(fmt.Sprintf("refresh dependent view %s", view), err)
			}
		}

		// Staging is CREATE TABLE (not CREATE TEMP TABLE), since
		// pgx.CopyFrom needs a stable relation visible across the whole
		// advisory-locked transaction; drop it explicitly once the delta
		// has landed rather than relying on session-end cleanup.
		return loader.Drop(ctx, tx, stageSpec)
	})
	if err != nil {
		return Report{}, err
	}

	if rc.Metrics != nil {
		rc.Metrics.ImportRowsAdded.WithLabelValues(def.ListType).Add(float64(result.Added))
		rc.Metrics.ImportRowsRemoved.WithLabelValues(def.ListType).Add(float64(result.Removed))
		rc.Metrics.ImportRowsUpdated.WithLabelValues(def.ListType).Add(float64(result.Updated))
	}

	return Report{RowsRead: rowsRead, Delta: result}, nil
}

// readInput unwraps in into the raw CSV bytes, resolving the zip/raw
// split declared by Input.
func readInput(in Input) ([]byte, error) {
	var r io.Reader
	if in.Zip != nil {
		rc, err := prevalidate.ExtractCSV(in.Zip, in.Filename)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		r = rc
	} else {
		r = in.CSV
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.NewPrevalidationError("zip", "read csv contents", err)
	}
	return data, nil
}

// parseBatch re-reads one prevalidate.Batch (header plus a fixed-size
// slice of data rows) and projects each row onto columnNames, in order,
// ready for pgx.CopyFromRows. A column named in constants is set to the
// same fixed value on every row instead of being read from the CSV
// (operator_id, derived from the upload's filename rather than its
// contents). Columns not present in the batch's header and not in
// constants are left NULL, and empty CSV values are stored as NULL
// rather than empty string, since the staging table has no NOT NULL
// constraints for optional fields.
func parseBatch(b prevalidate.Batch, columnNames []string, constants map[string]string) ([][]any, error) {
	if len(b.Data) == 0 {
		return nil, nil
	}
	cr := csv.NewReader(bytes.NewReader(b.Data))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewPrevalidationError("batch", "parse batch", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	var rows [][]any
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.NewPrevalidationError("batch", "parse batch", err)
		}
		row := make([]any, len(columnNames))
		for i, col := range columnNames {
			if v, ok := constants[col]; ok {
				row[i] = v
				continue
			}
			pos, ok := idx[col]
			if !ok || pos >= len(record) || record[pos] == "" {
				row[i] = nil
				continue
			}
			row[i] = record[pos]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// countRows returns the number of currently-live historic rows and the
// number of rows landed in staging, the (prev, cur) pair
// threshold.SizeVariation compares (spec.md §4.5 step 2).
func countRows(ctx context.Context, tx pgx.Tx, historicTable, stagingTable string) (int64, int64, error) {
	histID := pgx.Identifier{historicTable}.Sanitize()
	stageID := pgx.Identifier{stagingTable}.Sanitize()

	var prev, cur int64
	if err := tx.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s WHERE end_date IS NULL", histID)).Scan(&prev); err != nil {
		return 0, 0, errs.NewTransientDbError("count live historic rows", err)
	}
	if err := tx.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", stageID)).Scan(&cur); err != nil {
		return 0, 0, errs.NewTransientDbError("count staging rows", err)
	}
	return prev, cur, nil
}
