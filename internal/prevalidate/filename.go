package prevalidate

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// FilenameRule validates an import file's stem against an
// importer-specific naming convention. Generalized from the single
// operator-file rule in spec.md §4.3 step 2 ("For operator files the
// stem must be <operator_id>_<YYYYMMDD>_<YYYYMMDD> with start ≤ end ≤
// today") so every list type can declare its own rule: plain lists
// (stolen_list, gsma_data, ...) require only an exact stem match,
// while operator files require the date-range form.
type FilenameRule struct {
	// ExactStem, if non-empty, is the one accepted stem (e.g.
	// "stolen_list"). Mutually exclusive with DateRange.
	ExactStem string
	// DateRange, if true, expects "<prefix>_<YYYYMMDD>_<YYYYMMDD>" where
	// prefix must satisfy PrefixPattern (operator_id charset by default).
	DateRange     bool
	PrefixPattern *regexp.Regexp
}

var operatorIDPattern = regexp.MustCompile(`^[a-z0-9_]{1,16}$`)

// OperatorFilenameRule is the rule used by every operator-data importer
// (spec.md §6: "<operator_id>_<YYYYMMDD>_<YYYYMMDD>.zip with start ≤ end
// ≤ today").
var OperatorFilenameRule = FilenameRule{DateRange: true, PrefixPattern: operatorIDPattern}

var dateRangeStem = regexp.MustCompile(`^([A-Za-z0-9_]+)_(\d{8})_(\d{8})$`)

// Validate checks stem (filename without extension) against the rule.
// now is the clock used for the "end ≤ today" bound, threaded explicitly
// per the no-singleton-clock convention (internal/runctx.Clock).
func (r FilenameRule) Validate(stemName string, now time.Time) error {
	if !r.DateRange {
		if stemName != r.ExactStem {
			return errs.NewPrevalidationError("filename", "validate filename",
				fmt.Errorf("filename stem %q does not match expected %q", stemName, r.ExactStem))
		}
		return nil
	}

	m := dateRangeStem.FindStringSubmatch(stemName)
	if m == nil {
		return errs.NewPrevalidationError("filename", "validate filename",
			fmt.Errorf("filename stem %q does not match <prefix>_<YYYYMMDD>_<YYYYMMDD>", stemName))
	}
	prefix, startRaw, endRaw := m[1], m[2], m[3]

	pattern := r.PrefixPattern
	if pattern == nil {
		pattern = operatorIDPattern
	}
	if !pattern.MatchString(prefix) {
		return errs.NewPrevalidationError("filename", "validate filename",
			fmt.Errorf("filename prefix %q does not match expected pattern", prefix))
	}

	start, err := time.Parse("20060102", startRaw)
	if err != nil {
		return errs.NewPrevalidationError("filename", "validate filename",
			fmt.Errorf("invalid start date %q: %w", startRaw, err))
	}
	end, err := time.Parse("20060102", endRaw)
	if err != nil {
		return errs.NewPrevalidationError("filename", "validate filename",
			fmt.Errorf("invalid end date %q: %w", endRaw, err))
	}
	if start.After(end) {
		return errs.NewPrevalidationError("filename", "validate filename",
			fmt.Errorf("start date %s is after end date %s", startRaw, endRaw))
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if end.After(today) {
		return errs.NewPrevalidationError("filename", "validate filename",
			fmt.Errorf("end date %s is in the future relative to %s", endRaw, today.Format("20060102")))
	}
	return nil
}

// Prefix extracts the "<prefix>" component of a DateRange stem (e.g.
// the operator_id from "<operator_id>_<YYYYMMDD>_<YYYYMMDD>"). ok is
// false for a non-DateRange rule or a stem that does not match the
// pattern.
func (r FilenameRule) Prefix(stemName string) (prefix string, ok bool) {
	if !r.DateRange {
		return "", false
	}
	m := dateRangeStem.FindStringSubmatch(stemName)
	if m == nil {
		return "", false
	}
	return m[1], true
}
