// Package imeinorm implements IMEI normalization and derived identifiers
// as defined in the DIRBS Core data model (IMEI_norm, TAC).
package imeinorm

import (
	"regexp"
	"strings"
)

// rawPattern matches a raw IMEI: 1..16 characters of digits, hex letters,
// '*' or '#'.
var rawPattern = regexp.MustCompile(`^[0-9A-Fa-f*#]{1,16}$`)

var allDigits = regexp.MustCompile(`^[0-9]+$`)

// Valid reports whether raw is a syntactically valid IMEI per the data
// model (before normalization).
func Valid(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.ContainsAny(raw, " \t") {
		return false
	}
	return rawPattern.MatchString(raw)
}

// Normalize returns the canonical IMEI_norm for a raw IMEI string.
//
// If the first 14 characters of raw are all digits, IMEI_norm is those
// first 14 digits. Otherwise IMEI_norm is raw, uppercased in full.
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	if len(raw) >= 14 && allDigits.MatchString(raw[:14]) {
		return raw[:14]
	}
	return strings.ToUpper(raw)
}

// TAC returns the Type Allocation Code (first 8 characters of IMEI_norm)
// and true, when imeiNorm is a 14-digit all-numeric normalized IMEI.
// It returns ("", false) for alphanumeric (non-digit) normalized IMEIs,
// per the data model: "TAC ... first 8 characters of IMEI_norm when
// IMEI_norm is all-digit".
func TAC(imeiNorm string) (string, bool) {
	if len(imeiNorm) < 8 || !allDigits.MatchString(imeiNorm) {
		return "", false
	}
	return imeiNorm[:8], true
}

// HasLeadingZero reports whether imeiNorm begins with '0', used by the
// threshold guard's row-level invariant checks (spec.md §4.5).
func HasLeadingZero(imeiNorm string) bool {
	return len(imeiNorm) > 0 && imeiNorm[0] == '0'
}

// Malformed reports whether imeiNorm fails to look like a real-world
// IMEI: not all-digit-14, or all-digit-14 but containing the same digit
// repeated across the whole string. Used by the malformed_imei
// dimension.
func Malformed(imeiNorm string) bool {
	if len(imeiNorm) != 14 || !allDigits.MatchString(imeiNorm) {
		return true
	}
	first := imeiNorm[0]
	allSame := true
	for i := 1; i < len(imeiNorm); i++ {
		if imeiNorm[i] != first {
			allSame = false
			break
		}
	}
	return allSame
}
