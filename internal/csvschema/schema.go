// Package csvschema implements the in-process CSV schema DSL that
// replaces the original external validator process (spec.md §4.3,
// §9: "Pre-validation via an external process ... Do not shell out on
// the hot path if an in-process option exists").
package csvschema

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Column describes one expected CSV column.
type Column struct {
	Name     string
	Required bool
	Pattern  *regexp.Regexp // nil means "any value accepted"
}

// Schema is a named, ordered set of expected columns. Extra columns
// beyond those declared are accepted and ignored unless Strict is set.
type Schema struct {
	Name    string
	Columns []Column
	// DeltaColumn, if non-empty, is the column whose value must be one
	// of "add", "remove", "update" for delta-mode imports (spec.md §4.3
	// step 3, §6 "change_type ∈ {add, remove, update}").
	DeltaColumn string
	Strict      bool
}

var changeTypePattern = regexp.MustCompile(`^(add|remove|update)$`)

// ColumnIndex maps header names to their position for a validated file.
type ColumnIndex map[string]int

// ValidateHeader checks the CSV header row against the schema and
// returns a ColumnIndex for subsequent row validation.
func (s Schema) ValidateHeader(header []string) (ColumnIndex, error) {
	idx := make(ColumnIndex, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, col := range s.Columns {
		if col.Required {
			if _, ok := idx[col.Name]; !ok {
				return nil, errs.NewPrevalidationError("schema", fmt.Sprintf("validate schema %s", s.Name),
					fmt.Errorf("missing required column %q", col.Name))
			}
		}
	}
	if s.DeltaColumn != "" {
		if _, ok := idx[s.DeltaColumn]; !ok {
			return nil, errs.NewPrevalidationError("schema", fmt.Sprintf("validate schema %s", s.Name),
				fmt.Errorf("delta import missing required column %q", s.DeltaColumn))
		}
	}
	if s.Strict {
		declared := make(map[string]bool, len(s.Columns))
		for _, col := range s.Columns {
			declared[col.Name] = true
		}
		for _, h := range header {
			if !declared[h] {
				return nil, errs.NewPrevalidationError("schema", fmt.Sprintf("validate schema %s", s.Name),
					fmt.Errorf("unexpected column %q in strict schema", h))
			}
		}
	}
	return idx, nil
}

// ValidateRow checks one data row's column values against the schema's
// per-column regexes.
func (s Schema) ValidateRow(idx ColumnIndex, row []string) error {
	for _, col := range s.Columns {
		if col.Pattern == nil {
			continue
		}
		i, ok := idx[col.Name]
		if !ok || i >= len(row) {
			continue
		}
		if row[i] == "" && !col.Required {
			continue
		}
		if !col.Pattern.MatchString(row[i]) {
			return errs.NewPrevalidationError("schema", fmt.Sprintf("validate schema %s", s.Name),
				fmt.Errorf("column %q value %q does not match expected pattern", col.Name, row[i]))
		}
	}
	if s.DeltaColumn != "" {
		i, ok := idx[s.DeltaColumn]
		if ok && i < len(row) && !changeTypePattern.MatchString(row[i]) {
			return errs.NewPrevalidationError("schema", fmt.Sprintf("validate schema %s", s.Name),
				fmt.Errorf("change_type value %q must be one of add|remove|update", row[i]))
		}
	}
	return nil
}

// ValidateAll streams r, validating header and every data row. It
// returns the row count seen (excluding header).
func (s Schema) ValidateAll(r io.Reader, delimiter rune) (int, error) {
	cr := csv.NewReader(r)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return 0, nil // empty file: allowed, importer-specific whether accepted
	}
	if err != nil {
		return 0, errs.NewPrevalidationError("schema", fmt.Sprintf("validate schema %s", s.Name), err)
	}
	idx, err := s.ValidateHeader(header)
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errs.NewPrevalidationError("schema", fmt.Sprintf("validate schema %s", s.Name), err)
		}
		if err := s.ValidateRow(idx, row); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
