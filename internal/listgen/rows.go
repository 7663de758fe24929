// Package listgen implements the list generator (spec.md §4.8,
// component C8): per-operator blacklist, notifications and exceptions
// lists, their deltas against a base run, and a JSON run manifest.
package listgen

import (
	"sort"
	"strings"
	"time"
)

// ReasonDelimiter joins a row's triggering condition reasons. Condition
// reasons may never contain it (internal/config.ConditionConfig.validate
// enforces no `|`), matching spec.md §7/§4.8.
const ReasonDelimiter = "|"

// BlacklistRow is one blacklist.csv data row (spec.md §4.8: "IMEIs for
// which at least one blocking condition has an open classification row
// with block_date <= run_date").
type BlacklistRow struct {
	ImeiNorm  string
	BlockDate time.Time
	Reasons   []string
	// StartRunID/EndRunID (spec.md §4.8: "each output row carries
	// start_run_id ... end_run_id") are not set by QueryBlacklist and not
	// read by ComputeBlacklistDelta, which compares rows by imei_norm.
	StartRunID int64
	EndRunID   *int64
}

// NotificationRow is one notifications_list_<op>.csv data row.
type NotificationRow struct {
	ImeiNorm   string
	Imsi       string
	Msisdn     string
	BlockDate  time.Time
	Reasons    []string
	StartRunID int64
	EndRunID   *int64
}

// ExceptionRow is one exceptions_list_<op>.csv data row.
type ExceptionRow struct {
	Imei       string
	Imsi       string
	StartRunID int64
	EndRunID   *int64
}

// SortBlacklist sorts in place by imei_norm (spec.md §4.8 tie-break
// rule).
func SortBlacklist(rows []BlacklistRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ImeiNorm < rows[j].ImeiNorm })
}

// SortNotifications sorts in place by imei_norm, imsi, msisdn.
func SortNotifications(rows []NotificationRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ImeiNorm != b.ImeiNorm {
			return a.ImeiNorm < b.ImeiNorm
		}
		if a.Imsi != b.Imsi {
			return a.Imsi < b.Imsi
		}
		return a.Msisdn < b.Msisdn
	})
}

// SortExceptions sorts in place by imei, imsi.
func SortExceptions(rows []ExceptionRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Imei != b.Imei {
			return a.Imei < b.Imei
		}
		return a.Imsi < b.Imsi
	})
}

// JoinReasons renders a row's reasons for CSV output.
func JoinReasons(reasons []string) string {
	return strings.Join(reasons, ReasonDelimiter)
}
