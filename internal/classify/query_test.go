package classify

import (
	"strings"
	"testing"

	"github.com/dirbs/dirbs-core/internal/dimensions"
)

func TestBuildMatchingSetQuerySingleDimension(t *testing.T) {
	cond := Condition{Label: "local_stolen", Dimensions: []dimensions.Dimension{
		{Kind: dimensions.KindStolen},
	}}
	q, err := BuildMatchingSetQuery(cond, "20200101")
	if err != nil {
		t.Fatalf("BuildMatchingSetQuery() error: %v", err)
	}
	if !strings.Contains(q.SQL, "historic_stolen_list") {
		t.Errorf("expected stolen dimension SQL in result, got %q", q.SQL)
	}
	if strings.Contains(q.SQL, "INTERSECT") {
		t.Errorf("single-dimension query should not contain INTERSECT, got %q", q.SQL)
	}
}

func TestBuildMatchingSetQueryIntersectsMultipleDimensions(t *testing.T) {
	cond := Condition{Label: "compound", Dimensions: []dimensions.Dimension{
		{Kind: dimensions.KindStolen},
		{Kind: dimensions.KindGSMANotFound},
	}}
	q, err := BuildMatchingSetQuery(cond, "20200101")
	if err != nil {
		t.Fatalf("BuildMatchingSetQuery() error: %v", err)
	}
	if strings.Count(q.SQL, "INTERSECT") != 1 {
		t.Errorf("expected exactly one INTERSECT joining 2 dimensions, got %q", q.SQL)
	}
}

func TestBuildMatchingSetQueryAppliesInversion(t *testing.T) {
	cond := Condition{Label: "not_stolen", Dimensions: []dimensions.Dimension{
		{Kind: dimensions.KindStolen, Invert: true},
	}}
	q, err := BuildMatchingSetQuery(cond, "20200101")
	if err != nil {
		t.Fatalf("BuildMatchingSetQuery() error: %v", err)
	}
	if !strings.Contains(q.SQL, "NOT IN") {
		t.Errorf("expected inverted dimension to render NOT IN, got %q", q.SQL)
	}
}

func TestBuildMatchingSetQueryRenumbersPlaceholdersAcrossDimensions(t *testing.T) {
	cond := Condition{Label: "dupes_and_stolen", Dimensions: []dimensions.Dimension{
		{Kind: dimensions.KindDuplicateLarge, Parameters: map[string]any{"threshold": 3}},
		{Kind: dimensions.KindDuplicateLarge, Parameters: map[string]any{"threshold": 5}},
	}}
	q, err := BuildMatchingSetQuery(cond, "20200101")
	if err != nil {
		t.Fatalf("BuildMatchingSetQuery() error: %v", err)
	}
	if len(q.Args) != 6 {
		t.Fatalf("len(q.Args) = %d, want 6 (3 per dimension)", len(q.Args))
	}
	if !strings.Contains(q.SQL, "$4") || !strings.Contains(q.SQL, "$5") || !strings.Contains(q.SQL, "$6") {
		t.Errorf("expected the second dimension's placeholders renumbered to $4-$6, got %q", q.SQL)
	}
}

func TestBuildMatchingSetQueryRejectsNoDimensions(t *testing.T) {
	if _, err := BuildMatchingSetQuery(Condition{Label: "empty"}, "20200101"); err == nil {
		t.Fatal("expected an error for a condition with no dimensions")
	}
}
