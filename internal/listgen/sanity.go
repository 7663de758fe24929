package listgen

import (
	"fmt"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// SanityCheck implements spec.md §4.8's pre-write guard: "a run whose
// delta size exceeds a configured fraction of the previous run aborts
// before any CSV is written". disabled corresponds to
// --disable-sanity-checks.
func SanityCheck(deltaCount, previousRunCount int, maxFraction float64, disabled bool) error {
	if disabled || previousRunCount == 0 {
		return nil
	}
	fraction := float64(deltaCount) / float64(previousRunCount)
	if fraction > maxFraction {
		return errs.NewListgenSanityError(fraction, maxFraction)
	}
	return nil
}

// SanityCheckAll runs SanityCheck for every (operator, list) pair and
// returns the first failure, if any, tagged with context for the
// caller's log line.
func SanityCheckAll(checks map[string]struct {
	DeltaCount       int
	PreviousRunCount int
}, maxFraction float64, disabled bool) error {
	for name, c := range checks {
		if err := SanityCheck(c.DeltaCount, c.PreviousRunCount, maxFraction, disabled); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
