package config

import (
	"fmt"
	"regexp"
	"strings"
)

var conditionLabelPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// ConditionConfig is the configuration for one classification condition
// (spec.md §4.7, glossary: Condition), generalized from the original
// Python dirbs.config.conditions.ConditionConfig
// (original_source/src/dirbs/config/conditions.py) into a static struct.
type ConditionConfig struct {
	Label                   string            `yaml:"label" validate:"required,max=64"`
	GracePeriodDays         int               `yaml:"grace_period_days" validate:"gte=0"`
	Blocking                bool              `yaml:"blocking"`
	Sticky                  bool              `yaml:"sticky"`
	Reason                  string            `yaml:"reason" validate:"required"`
	MaxAllowedMatchingRatio float64           `yaml:"max_allowed_matching_ratio" validate:"gte=0,lte=1"`
	AmnestyEligible         bool              `yaml:"amnesty_eligible"`
	Dimensions              []DimensionConfig `yaml:"dimensions" validate:"required,min=1,dive"`
}

// DimensionConfig is the configuration for a single dimension within a
// condition: a named module plus typed parameters and an invert flag.
// The module name is validated against the closed registry in
// internal/dimensions at parse time by the caller (internal/classify),
// since internal/config does not import internal/dimensions.
type DimensionConfig struct {
	Module     string         `yaml:"module" validate:"required"`
	Parameters map[string]any `yaml:"parameters"`
	Invert     bool           `yaml:"invert"`
}

func (c ConditionConfig) validate() error {
	if !conditionLabelPattern.MatchString(c.Label) {
		return fmt.Errorf("condition label %q must contain only letters, digits or underscores, max 64 chars", c.Label)
	}
	if strings.Contains(c.Reason, "|") {
		return fmt.Errorf("condition %s: reason must not contain '|' (join-delimiter collision)", c.Label)
	}
	if c.AmnestyEligible && !c.Blocking {
		return fmt.Errorf("condition %s: amnesty_eligible cannot be set on a non-blocking (informational) condition", c.Label)
	}
	if len(c.Dimensions) == 0 {
		return fmt.Errorf("condition %s: must declare at least one dimension", c.Label)
	}
	return nil
}
