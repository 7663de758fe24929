package dimensions

import "testing"

func TestBuildQueryKnownKinds(t *testing.T) {
	kinds := []Kind{KindGSMANotFound, KindStolen, KindNotOnRegistrationList, KindMalformedIMEI, KindNotPaired, KindInconsistentRAT}
	for _, k := range kinds {
		d := Dimension{Kind: k}
		q, err := d.BuildQuery("20170101")
		if err != nil {
			t.Errorf("BuildQuery(%s) error: %v", k, err)
		}
		if q.SQL == "" {
			t.Errorf("BuildQuery(%s) returned empty SQL", k)
		}
	}
}

func TestBuildQueryDuplicateLargeRequiresThreshold(t *testing.T) {
	d := Dimension{Kind: KindDuplicateLarge}
	if _, err := d.BuildQuery("20170101"); err == nil {
		t.Fatal("expected error when threshold parameter is missing")
	}
}

func TestBuildQueryDuplicateLargeWithParameters(t *testing.T) {
	d := Dimension{Kind: KindDuplicateLarge, Parameters: map[string]any{"threshold": 3, "period_days": 30}}
	q, err := d.BuildQuery("20170101")
	if err != nil {
		t.Fatalf("BuildQuery() error: %v", err)
	}
	if len(q.Args) != 3 {
		t.Fatalf("len(q.Args) = %d, want 3", len(q.Args))
	}
	if q.Args[0] != 30 || q.Args[2] != 3 {
		t.Errorf("args = %v", q.Args)
	}
}

func TestBuildQueryDuplicateLargeDefaultsPeriod(t *testing.T) {
	d := Dimension{Kind: KindDuplicateLarge, Parameters: map[string]any{"threshold": 5}}
	q, err := d.BuildQuery("20170101")
	if err != nil {
		t.Fatalf("BuildQuery() error: %v", err)
	}
	if q.Args[0] != 30 {
		t.Errorf("default period_days = %v, want 30", q.Args[0])
	}
}

func TestBuildQueryUnknownKind(t *testing.T) {
	d := Dimension{Kind: Kind("not_a_real_kind")}
	if _, err := d.BuildQuery("20170101"); err == nil {
		t.Fatal("expected error for unknown dimension kind")
	}
}

func TestIntParamAcceptsJSONNumberTypes(t *testing.T) {
	if v, ok := intParam(map[string]any{"x": float64(7)}, "x"); !ok || v != 7 {
		t.Errorf("intParam(float64) = %d, %v", v, ok)
	}
	if v, ok := intParam(map[string]any{"x": int64(9)}, "x"); !ok || v != 9 {
		t.Errorf("intParam(int64) = %d, %v", v, ok)
	}
	if _, ok := intParam(map[string]any{}, "missing"); ok {
		t.Error("expected ok=false for missing key")
	}
	if _, ok := intParam(map[string]any{"x": "not a number"}, "x"); ok {
		t.Error("expected ok=false for wrong type")
	}
}
