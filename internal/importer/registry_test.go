package importer

import "testing"

func TestLookupKnownListType(t *testing.T) {
	d, err := Lookup("stolen_list")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if d.HistoricTable != "historic_stolen_list" {
		t.Errorf("HistoricTable = %q, want historic_stolen_list", d.HistoricTable)
	}
}

func TestLookupUnknownListType(t *testing.T) {
	if _, err := Lookup("not_a_real_list"); err == nil {
		t.Fatal("expected error for unknown list type")
	}
}

func TestEveryDefinitionDeclaresAPrimaryKey(t *testing.T) {
	for name, d := range Registry {
		if len(d.PKColumns) == 0 {
			t.Errorf("%s: no PKColumns declared", name)
		}
		if d.HistoricTable == "" {
			t.Errorf("%s: no HistoricTable declared", name)
		}
	}
}

func TestRawCSVColumnsExcludesDerivedColumns(t *testing.T) {
	d := Registry["stolen_list"]
	got := d.rawCSVColumns()
	want := []string{"imei", "reporting_date", "status"}
	if len(got) != len(want) {
		t.Fatalf("rawCSVColumns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rawCSVColumns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRawCSVColumnsGSMADropsOptionalFields(t *testing.T) {
	d := Registry["gsma_data"]
	for _, col := range d.rawCSVColumns() {
		if col == "optional_fields" {
			t.Error("rawCSVColumns() should never include optional_fields, it has no single CSV header")
		}
		if col == "rat_bitmask" {
			t.Error("rawCSVColumns() should exclude the derived rat_bitmask column")
		}
	}
}

func TestOperatorDefinitionsDeriveOperatorIDFromFilename(t *testing.T) {
	for _, name := range []string{"operator_v1", "operator_v2"} {
		d := Registry[name]
		if d.OperatorIDColumn != "operator_id" {
			t.Errorf("%s: OperatorIDColumn = %q, want operator_id", name, d.OperatorIDColumn)
		}
		found := false
		for _, col := range d.StagingColumns {
			if col == d.OperatorIDColumn {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: StagingColumns %v does not include OperatorIDColumn %q", name, d.StagingColumns, d.OperatorIDColumn)
		}
	}
}

func TestOperatorDefinitionsRefreshDependentViews(t *testing.T) {
	for _, name := range []string{"operator_v1", "operator_v2"} {
		d := Registry[name]
		want := []string{"monthly_network_triplets_country", "network_imeis"}
		if len(d.DependentViews) != len(want) {
			t.Fatalf("%s: DependentViews = %v, want %v", name, d.DependentViews, want)
		}
		for i := range want {
			if d.DependentViews[i] != want[i] {
				t.Errorf("%s: DependentViews[%d] = %q, want %q", name, i, d.DependentViews[i], want[i])
			}
		}
	}
}

func TestNonOperatorDefinitionsHaveNoOperatorIDColumn(t *testing.T) {
	for name, d := range Registry {
		if name == "operator_v1" || name == "operator_v2" {
			continue
		}
		if d.OperatorIDColumn != "" {
			t.Errorf("%s: unexpected OperatorIDColumn %q", name, d.OperatorIDColumn)
		}
	}
}
