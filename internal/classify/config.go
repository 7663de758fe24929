package classify

import (
	"fmt"

	"github.com/dirbs/dirbs-core/internal/config"
	"github.com/dirbs/dirbs-core/internal/dimensions"
)

// dimensionKinds is the closed set of module names config.DimensionConfig
// may name, mirrored here (rather than in internal/config) since
// internal/config must not import internal/dimensions.
var dimensionKinds = map[string]dimensions.Kind{
	"gsma_not_found":           dimensions.KindGSMANotFound,
	"stolen":                   dimensions.KindStolen,
	"duplicate_large":          dimensions.KindDuplicateLarge,
	"not_on_registration_list": dimensions.KindNotOnRegistrationList,
	"malformed_imei":           dimensions.KindMalformedIMEI,
	"inconsistent_rat":         dimensions.KindInconsistentRAT,
	"not_paired":               dimensions.KindNotPaired,
}

// FromConfig resolves one parsed config.ConditionConfig into a typed
// Condition, validating every dimension's module name against the
// closed dimensions.Kind registry. This is the boundary
// internal/config's own doc comment defers to: DimensionConfig.Module
// is just a string until a caller that may import internal/dimensions
// resolves it.
func FromConfig(cc config.ConditionConfig) (Condition, error) {
	dims := make([]dimensions.Dimension, 0, len(cc.Dimensions))
	for _, dc := range cc.Dimensions {
		kind, ok := dimensionKinds[dc.Module]
		if !ok {
			return Condition{}, fmt.Errorf("condition %s: unknown dimension module %q", cc.Label, dc.Module)
		}
		dims = append(dims, dimensions.Dimension{
			Kind:       kind,
			Parameters: dc.Parameters,
			Invert:     dc.Invert,
		})
	}
	return Condition{
		Label:                   cc.Label,
		GracePeriodDays:         cc.GracePeriodDays,
		Blocking:                cc.Blocking,
		Sticky:                  cc.Sticky,
		Reason:                  cc.Reason,
		MaxAllowedMatchingRatio: cc.MaxAllowedMatchingRatio,
		AmnestyEligible:         cc.AmnestyEligible,
		Dimensions:              dims,
	}, nil
}

// AllFromConfig resolves every configured condition, returning the first
// resolution error encountered (a config-time failure, not a per-run
// one).
func AllFromConfig(ccs []config.ConditionConfig) ([]Condition, error) {
	out := make([]Condition, 0, len(ccs))
	for _, cc := range ccs {
		cond, err := FromConfig(cc)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}
