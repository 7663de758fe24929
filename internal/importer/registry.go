// Package importer wires the per-list-type pipeline (spec.md §4,
// components C3→C4→C5→C6): pre-validate, stage, threshold-guard, apply
// delta. One Definition per importer generalizes
// original_source/src/dirbs/importer/*.py's one-class-per-list-type
// layout (device_association_list_importer.py,
// gsma_data_importer.py) into declarative data instead of a class
// hierarchy, per spec.md §9's re-architecture instruction to replace
// dynamic dispatch with static registries wherever the original used
// subclassing for pure configuration differences.
package importer

import (
	"fmt"

	"github.com/dirbs/dirbs-core/internal/csvschema"
	"github.com/dirbs/dirbs-core/internal/delta"
	"github.com/dirbs/dirbs-core/internal/prevalidate"
	"github.com/dirbs/dirbs-core/internal/staging"
)

// Definition fully describes one importable list type.
type Definition struct {
	ListType      string
	HistoricTable string
	Schema        csvschema.Schema
	FilenameRule  prevalidate.FilenameRule
	PKColumns     []string
	// StagingColumns is the staging relation's column set (always TEXT;
	// normalization happens via post-copy hooks so the bulk-copy path
	// stays a straight pass-through of the validated CSV).
	StagingColumns []string
	PostCopyHooks  []staging.PostCopyHook
	// PayloadColumns are the non-PK historic columns compared for the
	// UPDATE set and carried on insert.
	PayloadColumns   []string
	MaterializedView string
	// OperatorIDColumn, if non-empty, is a staging column populated not
	// from the CSV but from the operator_id prefix of the uploaded
	// filename (spec.md §6 operator file naming convention), for the
	// per-operator observed-data importers.
	OperatorIDColumn string
	// DependentViews are additional materialized views (beyond
	// MaterializedView) refreshed, in order, after this importer's
	// delta.Apply — e.g. the network_imeis/monthly_network_triplets_country
	// rollups that depend on monthly_network_triplets_per_mno.
	DependentViews []string
}

func (d Definition) stagingSpec(stagingTable string) staging.Spec {
	var cols []staging.Column
	for _, name := range d.StagingColumns {
		cols = append(cols, staging.Column{Name: name, Type: "TEXT"})
	}
	return staging.Spec{TableName: stagingTable, Columns: cols, PostCopyHooks: d.PostCopyHooks}
}

func (d Definition) deltaSpec(stagingTable string, isDeltaMode bool) delta.Spec {
	return delta.Spec{
		HistoricTable:    d.HistoricTable,
		StagingTable:     stagingTable,
		PKColumns:        d.PKColumns,
		PayloadColumns:   d.PayloadColumns,
		DeltaMode:        isDeltaMode,
		MaterializedView: d.MaterializedView,
	}
}

// imeiDef is the shared shape of every IMEI-keyed list (stolen,
// registration, golden, barred, ...): staging carries the raw imei plus
// derived imei_norm/virt_imei_shard.
func imeiDef(listType, historicTable string, schema csvschema.Schema, extraStagingCols, extraPayloadCols []string) Definition {
	staged := append([]string{"imei", "imei_norm", "virt_imei_shard"}, extraStagingCols...)
	payload := extraPayloadCols
	return Definition{
		ListType:         listType,
		HistoricTable:    historicTable,
		Schema:           schema,
		FilenameRule:     prevalidate.FilenameRule{ExactStem: listType},
		PKColumns:        []string{"imei_norm"},
		StagingColumns:   staged,
		PostCopyHooks:    staging.NormalizeAndShardHooks("imei"),
		PayloadColumns:   payload,
		MaterializedView: "",
	}
}

// Registry is the closed set of importable list types (spec.md §3.8
// list catalog plus the operator v1/v2, gsma_data and whitelist forms
// from §6).
var Registry = map[string]Definition{
	"stolen_list": imeiDef("stolen_list", "historic_stolen_list", csvschema.StolenList, []string{"reporting_date", "status"}, []string{"status"}),
	"registration_list": imeiDef("registration_list", "historic_registration_list", csvschema.RegistrationList,
		[]string{"make", "model", "status"}, []string{"make", "model", "status"}),
	"golden_list": imeiDef("golden_list", "historic_golden_list", csvschema.GoldenList, nil, nil),
	"barred_list": imeiDef("barred_list", "historic_barred_list", csvschema.BarredList, nil, nil),
	"whitelist":   imeiDef("whitelist", "historic_whitelist", csvschema.WhitelistList, nil, nil),

	"barred_tac_list": {
		ListType:       "barred_tac_list",
		HistoricTable:  "historic_barred_tac_list",
		Schema:         csvschema.BarredTacList,
		FilenameRule:   prevalidate.FilenameRule{ExactStem: "barred_tac_list"},
		PKColumns:      []string{"tac"},
		StagingColumns: []string{"tac"},
	},

	"subscribers_registration_list": {
		ListType:       "subscribers_registration_list",
		HistoricTable:  "historic_subscribers_registration_list",
		Schema:         csvschema.SubscribersRegistrationList,
		FilenameRule:   prevalidate.FilenameRule{ExactStem: "subscribers_registration_list"},
		PKColumns:      []string{"imsi"},
		StagingColumns: []string{"imsi", "imei", "imei_norm", "virt_imei_shard", "msisdn"},
		PostCopyHooks:  staging.NormalizeAndShardHooks("imei"),
		PayloadColumns: []string{"imei_norm", "msisdn"},
	},

	"device_association_list": {
		ListType:       "device_association_list",
		HistoricTable:  "historic_device_association_list",
		Schema:         csvschema.DeviceAssociationList,
		FilenameRule:   prevalidate.FilenameRule{ExactStem: "device_association_list"},
		PKColumns:      []string{"uid", "imei_norm"},
		StagingColumns: []string{"uid", "imei", "imei_norm", "virt_imei_shard"},
		PostCopyHooks:  staging.NormalizeAndShardHooks("imei"),
	},

	"pairing_list": {
		ListType:       "pairing_list",
		HistoricTable:  "historic_pairing_list",
		Schema:         csvschema.PairingList,
		FilenameRule:   prevalidate.FilenameRule{ExactStem: "pairing_list"},
		PKColumns:      []string{"imei_norm", "imsi"},
		StagingColumns: []string{"imei", "imei_norm", "virt_imei_shard", "imsi"},
		PostCopyHooks:  staging.NormalizeAndShardHooks("imei"),
	},

	// optional_fields (spec.md §6: "any additional columns are collected
	// into optional_fields") is intentionally not modeled as a staging
	// column: it has no single CSV header name to bulk-copy against.
	// Extra GSMA columns beyond the mandatory set are accepted by the
	// non-strict schema and simply not persisted.
	"gsma_data": {
		ListType:         "gsma_data",
		HistoricTable:    "historic_gsma_data",
		Schema:           csvschema.GSMAData,
		FilenameRule:     prevalidate.FilenameRule{ExactStem: "gsma_data"},
		PKColumns:        []string{"tac"},
		StagingColumns:   []string{"tac", "manufacturer", "model_name", "bands", "allocation_date", "device_type", "rat_bitmask"},
		PostCopyHooks:    []staging.PostCopyHook{staging.GSMARatBitmaskHook},
		PayloadColumns:   []string{"manufacturer", "model_name", "bands", "allocation_date", "device_type", "rat_bitmask"},
		MaterializedView: "gsma_data",
	},

	"operator_v1": {
		ListType:         "operator_v1",
		HistoricTable:    "monthly_network_triplets_per_mno",
		Schema:           csvschema.OperatorDataV1,
		FilenameRule:     prevalidate.OperatorFilenameRule,
		PKColumns:        []string{"operator_id", "imei_norm", "imsi", "msisdn"},
		StagingColumns:   []string{"date", "imei", "imei_norm", "virt_imei_shard", "imsi", "msisdn", "operator_id"},
		PostCopyHooks:    staging.NormalizeAndShardHooks("imei"),
		PayloadColumns:   []string{"date"},
		OperatorIDColumn: "operator_id",
		DependentViews:   []string{"monthly_network_triplets_country", "network_imeis"},
	},
	"operator_v2": {
		ListType:      "operator_v2",
		HistoricTable: "monthly_network_triplets_per_mno",
		Schema:        csvschema.OperatorDataV2,
		FilenameRule:  prevalidate.OperatorFilenameRule,
		PKColumns:     []string{"operator_id", "imei_norm", "imsi", "msisdn"},
		StagingColumns: []string{
			"date", "imei", "imei_norm", "virt_imei_shard", "imsi", "msisdn", "rat", "rat_bitmask", "operator_id",
		},
		PostCopyHooks: append(staging.NormalizeAndShardHooks("imei"), staging.PostCopyHook{
			Name: "rat_bitmask",
			SQL:  `UPDATE %s SET rat_bitmask = translate_bands_to_rat_bitmask(rat)`,
		}),
		PayloadColumns:   []string{"date", "rat", "rat_bitmask"},
		OperatorIDColumn: "operator_id",
		DependentViews:   []string{"monthly_network_triplets_country", "network_imeis"},
	},
}

// derivedColumns are staging columns a post-copy hook populates rather
// than ones read straight off the CSV.
var derivedColumns = map[string]bool{
	"imei_norm":       true,
	"virt_imei_shard": true,
	"rat_bitmask":     true,
	"operator_id":     true,
}

// rawCSVColumns returns d.StagingColumns minus the derived ones, which
// is exactly the column set (and order) the bulk copy reads off each
// validated CSV row.
func (d Definition) rawCSVColumns() []string {
	var out []string
	for _, c := range d.StagingColumns {
		if !derivedColumns[c] {
			out = append(out, c)
		}
	}
	return out
}

// Lookup resolves a Definition by list type, as accepted by the
// `dirbs import <list_type> <file>` CLI subcommand.
func Lookup(listType string) (Definition, error) {
	d, ok := Registry[listType]
	if !ok {
		return Definition{}, fmt.Errorf("unknown import list type %q", listType)
	}
	return d, nil
}
