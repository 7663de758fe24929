package csvschema

import "regexp"

var (
	imeiPattern    = regexp.MustCompile(`^\d{5,16}$`)
	imsiPattern    = regexp.MustCompile(`^\d{5,15}$`)
	msisdnPattern  = regexp.MustCompile(`^\d{5,15}$`)
	datePattern    = regexp.MustCompile(`^\d{8}$`)
	tacPattern     = regexp.MustCompile(`^\d{8}$`)
	uidPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	ratPattern     = regexp.MustCompile(`^[A-Za-z0-9/,_-]*$`)
	deviceTypePatt = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)
	bandsPattern   = regexp.MustCompile(`^[A-Za-z0-9/,_+-]*$`)
)

// StolenList matches historic_stolen_list (spec.md §3 list catalog).
var StolenList = Schema{
	Name: "stolen_list",
	Columns: []Column{
		{Name: "imei", Required: true, Pattern: imeiPattern},
		{Name: "reporting_date", Required: false, Pattern: datePattern},
		{Name: "status", Required: false},
	},
}

// RegistrationList matches historic_registration_list.
var RegistrationList = Schema{
	Name: "registration_list",
	Columns: []Column{
		{Name: "imei", Required: true, Pattern: imeiPattern},
		{Name: "make", Required: false},
		{Name: "model", Required: false},
		{Name: "status", Required: false},
	},
}

// GoldenList matches historic_golden_list.
var GoldenList = Schema{
	Name: "golden_list",
	Columns: []Column{
		{Name: "imei", Required: true, Pattern: imeiPattern},
	},
}

// BarredList matches historic_barred_list.
var BarredList = Schema{
	Name: "barred_list",
	Columns: []Column{
		{Name: "imei", Required: true, Pattern: imeiPattern},
	},
}

// BarredTacList matches historic_barred_tac_list.
var BarredTacList = Schema{
	Name: "barred_tac_list",
	Columns: []Column{
		{Name: "tac", Required: true, Pattern: tacPattern},
	},
}

// SubscribersRegistrationList matches historic_subscribers_registration_list.
var SubscribersRegistrationList = Schema{
	Name: "subscribers_registration_list",
	Columns: []Column{
		{Name: "imsi", Required: true, Pattern: imsiPattern},
		{Name: "imei", Required: true, Pattern: imeiPattern},
		{Name: "msisdn", Required: false, Pattern: msisdnPattern},
	},
}

// DeviceAssociationList matches historic_device_association_list, keyed
// (uid, imei_norm) per spec.md §3.
var DeviceAssociationList = Schema{
	Name: "device_association_list",
	Columns: []Column{
		{Name: "uid", Required: true, Pattern: uidPattern},
		{Name: "imei", Required: true, Pattern: imeiPattern},
	},
}

// PairingList matches historic_pairing_list, keyed (imei_norm, imsi).
var PairingList = Schema{
	Name: "pairing_list",
	Columns: []Column{
		{Name: "imei", Required: true, Pattern: imeiPattern},
		{Name: "imsi", Required: true, Pattern: imsiPattern},
	},
}

// WhitelistList matches historic_whitelist.
var WhitelistList = Schema{
	Name: "whitelist",
	Columns: []Column{
		{Name: "imei", Required: true, Pattern: imeiPattern},
	},
}

// OperatorDataV1 is the minimal operator observed-data schema (spec.md
// §6 "Wire/file formats": columns date,imei,imsi,msisdn).
var OperatorDataV1 = Schema{
	Name: "operator_data_v1",
	Columns: []Column{
		{Name: "date", Required: true, Pattern: datePattern},
		{Name: "imei", Required: true, Pattern: imeiPattern},
		{Name: "imsi", Required: true, Pattern: imsiPattern},
		{Name: "msisdn", Required: true, Pattern: msisdnPattern},
	},
}

// OperatorDataV2 adds the rat column (spec.md §6, used to derive
// inconsistent_rat dimension input).
var OperatorDataV2 = Schema{
	Name: "operator_data_v2",
	Columns: []Column{
		{Name: "date", Required: true, Pattern: datePattern},
		{Name: "imei", Required: true, Pattern: imeiPattern},
		{Name: "imsi", Required: true, Pattern: imsiPattern},
		{Name: "msisdn", Required: true, Pattern: msisdnPattern},
		{Name: "rat", Required: false, Pattern: ratPattern},
	},
}

// GSMAData matches the pipe-delimited GSMA TAC directory (spec.md §6:
// "mandatory columns tac,manufacturer,model_name,bands,allocation_date,
// device_type"). Additional columns pass validation and are not
// persisted; no optional_fields map is built from them.
var GSMAData = Schema{
	Name: "gsma_data",
	Columns: []Column{
		{Name: "tac", Required: true, Pattern: tacPattern},
		{Name: "manufacturer", Required: true},
		{Name: "model_name", Required: true},
		{Name: "bands", Required: true, Pattern: bandsPattern},
		{Name: "allocation_date", Required: true, Pattern: datePattern},
		{Name: "device_type", Required: true, Pattern: deviceTypePatt},
	},
}

// DeltaSchema returns a copy of s with DeltaColumn set to "change_type",
// matching the universal delta-form convention (spec.md §6: "all
// importers accept a corresponding delta form with an added change_type
// column").
func DeltaSchema(s Schema) Schema {
	s.DeltaColumn = "change_type"
	return s
}

// ByImportType resolves the base (non-delta) schema for a list_type
// name as accepted by the `dirbs import` CLI subcommand.
func ByImportType(listType string) (Schema, bool) {
	switch listType {
	case "stolen_list":
		return StolenList, true
	case "registration_list":
		return RegistrationList, true
	case "golden_list":
		return GoldenList, true
	case "barred_list":
		return BarredList, true
	case "barred_tac_list":
		return BarredTacList, true
	case "subscribers_registration_list":
		return SubscribersRegistrationList, true
	case "device_association_list":
		return DeviceAssociationList, true
	case "pairing_list":
		return PairingList, true
	case "whitelist":
		return WhitelistList, true
	case "gsma_data":
		return GSMAData, true
	case "operator_v1":
		return OperatorDataV1, true
	case "operator_v2":
		return OperatorDataV2, true
	default:
		return Schema{}, false
	}
}
