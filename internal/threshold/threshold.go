// Package threshold implements the threshold guard (spec.md §4.5,
// component C5): row-level invariant ratios, historic size-variation,
// and delta-update sanity, each fatal to the import on breach.
package threshold

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// RatioCheck is one row-level invariant: Count is the number of rows
// violating the invariant (e.g. null IMSI, leading-zero IMEI, IMEI
// outside the configured MCC+MNC prefix set) out of Total rows
// inspected. MaxRatio is the configured ceiling.
type RatioCheck struct {
	Reason   string
	Count    int64
	Total    int64
	MaxRatio float64
}

func (c RatioCheck) ratio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Count) / float64(c.Total)
}

// Evaluate returns a ThresholdError if the observed ratio exceeds
// MaxRatio.
func (c RatioCheck) Evaluate() error {
	if c.ratio() > c.MaxRatio {
		return errs.NewThresholdError(c.Reason, "row-level invariant check",
			fmt.Errorf("%s ratio %.6f exceeds configured max %.6f (%d/%d rows)",
				c.Reason, c.ratio(), c.MaxRatio, c.Count, c.Total))
	}
	return nil
}

// RunRatioChecks evaluates every check concurrently (spec.md §9 worker
// model: bounded parallelism), returning the first failure encountered
// (or nil). All checks run to completion even if one fails, so every
// failing reason still reaches the metrics sink via the caller.
func RunRatioChecks(ctx context.Context, checks []RatioCheck, onViolation func(RatioCheck)) error {
	g, _ := errgroup.WithContext(ctx)
	results := make([]error, len(checks))
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			results[i] = c.Evaluate()
			return nil
		})
	}
	_ = g.Wait()

	var first error
	for i, err := range results {
		if err != nil {
			if onViolation != nil {
				onViolation(checks[i])
			}
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// SizeVariation implements the historic size-variation check (spec.md
// §4.5 step 2): reject unless |cur - prev| <= max(absolute,
// percent * prev).
type SizeVariation struct {
	Prev     int64
	Cur      int64
	Absolute int64
	Percent  float64
}

func (s SizeVariation) allowed() float64 {
	pctBound := s.Percent * float64(s.Prev)
	if float64(s.Absolute) > pctBound {
		return float64(s.Absolute)
	}
	return pctBound
}

// Evaluate returns a ThresholdError if the size variation exceeds the
// configured bound. When Prev is zero (first-ever import of this list)
// the check is skipped: there is no baseline to vary from.
func (s SizeVariation) Evaluate() error {
	if s.Prev == 0 {
		return nil
	}
	delta := s.Cur - s.Prev
	if delta < 0 {
		delta = -delta
	}
	if float64(delta) > s.allowed() {
		return errs.NewThresholdError("historic_size_variation", "historic size-variation check",
			fmt.Errorf("row count changed by %d (prev=%d, cur=%d), exceeds allowed variation %.2f",
				delta, s.Prev, s.Cur, s.allowed()))
	}
	return nil
}

// DeltaSanity implements the delta-update sanity check (spec.md §4.5
// step 3, delta mode only).
type DeltaSanity struct {
	// RemoveNotLive counts change_type=remove rows whose PK is not live
	// in historic.
	RemoveNotLive int64
	// AddAlreadyLive counts change_type=add rows whose PK is already
	// live in historic.
	AddAlreadyLive int64
	// UpdateNotLive counts change_type=update rows whose PK is not live
	// in historic.
	UpdateNotLive int64
	TotalRows     int64
	MaxRatio      float64
}

// Evaluate returns a ThresholdError if the fraction of
// inconsistent delta rows exceeds MaxRatio.
func (d DeltaSanity) Evaluate() error {
	bad := d.RemoveNotLive + d.AddAlreadyLive + d.UpdateNotLive
	if d.TotalRows == 0 {
		return nil
	}
	ratio := float64(bad) / float64(d.TotalRows)
	if ratio > d.MaxRatio {
		return errs.NewThresholdError("delta_update_sanity", "delta-update sanity check",
			fmt.Errorf("%d/%d delta rows are inconsistent with historic state (ratio %.6f exceeds max %.6f): "+
				"remove_not_live=%d add_already_live=%d update_not_live=%d",
				bad, d.TotalRows, ratio, d.MaxRatio, d.RemoveNotLive, d.AddAlreadyLive, d.UpdateNotLive))
	}
	return nil
}
