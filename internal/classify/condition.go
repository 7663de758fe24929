// Package classify implements the classification engine (spec.md
// §4.7, component C7): per-condition matching-set computation, the
// safety-ratio guard, and state reconciliation against
// classification_state.
package classify

import (
	"time"

	"github.com/dirbs/dirbs-core/internal/dimensions"
	"github.com/dirbs/dirbs-core/internal/errs"
)

// Condition mirrors one configured classification condition (spec.md
// §4.7 / internal/config.ConditionConfig, re-expressed with its
// dimensions already resolved to the typed dimensions.Dimension form).
type Condition struct {
	Label                   string
	GracePeriodDays         int
	Blocking                bool
	Sticky                  bool
	Reason                  string
	MaxAllowedMatchingRatio float64
	AmnestyEligible         bool
	Dimensions              []dimensions.Dimension
}

// AmnestyWindow is the operator-scoped pardon window of spec.md §7
// glossary: IMEIs first observed before Cutoff are granted amnesty;
// amnesty defers block_date population until End.
type AmnestyWindow struct {
	Cutoff time.Time
	End    time.Time
}

// Row mirrors one classification_state row.
type Row struct {
	ImeiNorm       string
	CondName       string
	StartDate      time.Time
	EndDate        *time.Time
	BlockDate      *time.Time
	AmnestyGranted bool
}

// CheckSafetyRatio returns a ClassificationSafetyError if the matching
// set is disproportionately large relative to the observed population
// (spec.md §4.7 step 2). bypass corresponds to the CLI's
// --no-safety-check flag.
func CheckSafetyRatio(condLabel string, matchingCount, observedCount int, maxRatio float64, bypass bool) error {
	if bypass || observedCount == 0 {
		return nil
	}
	ratio := float64(matchingCount) / float64(observedCount)
	if ratio > maxRatio {
		return errs.NewClassificationSafetyError(condLabel, ratio, maxRatio)
	}
	return nil
}

// Reconciliation is the outcome of reconciling one condition's matching
// set against its current open classification_state rows.
type Reconciliation struct {
	ToInsert []Row
	// ToClose holds imei_norm values whose open row should be closed
	// (end_date = runStart). Sticky conditions never populate this.
	ToClose []string
	// ToUpdateBlockDate holds block_date patches for rows that were
	// already open, amnesty-granted and still deferring block_date, now
	// that the amnesty window has closed (spec.md §4.7 step 4: amnesty
	// only *defers* block_date population, it does not exempt the row
	// from blocking forever).
	ToUpdateBlockDate []BlockDateUpdate
}

// BlockDateUpdate patches an already-open classification_state row's
// block_date once its deferred amnesty window has elapsed.
type BlockDateUpdate struct {
	ImeiNorm  string
	BlockDate time.Time
}

// Reconcile implements spec.md §4.7 step 3-4. matchingSet holds the
// imei_norm values the condition currently matches; openRows holds the
// condition's existing open classification_state rows keyed by
// imei_norm; firstSeen holds each imei_norm's first-observed time (for
// amnesty eligibility).
func Reconcile(
	cond Condition,
	matchingSet map[string]bool,
	openRows map[string]Row,
	runStart time.Time,
	amnesty *AmnestyWindow,
	firstSeen map[string]time.Time,
) Reconciliation {
	var out Reconciliation

	for imei := range matchingSet {
		if row, open := openRows[imei]; open {
			// matching and already open: preserves start_date, but an
			// amnesty-deferred row whose window has since closed still
			// needs its block_date populated now.
			if cond.Blocking && row.AmnestyGranted && row.BlockDate == nil &&
				amnesty != nil && !runStart.Before(amnesty.End) {
				bd := amnesty.End.AddDate(0, 0, cond.GracePeriodDays)
				out.ToUpdateBlockDate = append(out.ToUpdateBlockDate, BlockDateUpdate{ImeiNorm: imei, BlockDate: bd})
			}
			continue
		}
		row := Row{ImeiNorm: imei, CondName: cond.Label, StartDate: runStart}

		granted := false
		if cond.AmnestyEligible && amnesty != nil {
			if fs, ok := firstSeen[imei]; ok && fs.Before(amnesty.Cutoff) {
				granted = true
			}
		}
		row.AmnestyGranted = granted

		if cond.Blocking {
			if granted && runStart.Before(amnesty.End) {
				// amnesty defers block_date population until the amnesty
				// window closes.
			} else {
				base := runStart
				if granted {
					base = amnesty.End
				}
				bd := base.AddDate(0, 0, cond.GracePeriodDays)
				row.BlockDate = &bd
			}
		}
		out.ToInsert = append(out.ToInsert, row)
	}

	if !cond.Sticky {
		for imei := range openRows {
			if !matchingSet[imei] {
				out.ToClose = append(out.ToClose, imei)
			}
		}
	}

	return out
}
