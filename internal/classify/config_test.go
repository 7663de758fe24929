package classify

import (
	"testing"

	"github.com/dirbs/dirbs-core/internal/config"
	"github.com/dirbs/dirbs-core/internal/dimensions"
)

func TestFromConfigResolvesKnownModule(t *testing.T) {
	cc := config.ConditionConfig{
		Label:                   "local_stolen",
		Blocking:                true,
		Reason:                  "stolen",
		MaxAllowedMatchingRatio: 0.1,
		Dimensions: []config.DimensionConfig{
			{Module: "stolen", Invert: false},
		},
	}
	cond, err := FromConfig(cc)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if len(cond.Dimensions) != 1 || cond.Dimensions[0].Kind != dimensions.KindStolen {
		t.Fatalf("unexpected resolved dimensions: %+v", cond.Dimensions)
	}
}

func TestFromConfigRejectsUnknownModule(t *testing.T) {
	cc := config.ConditionConfig{
		Label:  "bogus",
		Reason: "bogus",
		Dimensions: []config.DimensionConfig{
			{Module: "not_a_real_module"},
		},
	}
	if _, err := FromConfig(cc); err == nil {
		t.Fatal("expected an error for an unknown dimension module")
	}
}

func TestAllFromConfigPropagatesFirstError(t *testing.T) {
	ccs := []config.ConditionConfig{
		{Label: "a", Reason: "a", Dimensions: []config.DimensionConfig{{Module: "stolen"}}},
		{Label: "b", Reason: "b", Dimensions: []config.DimensionConfig{{Module: "nope"}}},
	}
	if _, err := AllFromConfig(ccs); err == nil {
		t.Fatal("expected an error from the second condition's unknown module")
	}
}
