package listgen

import (
	"encoding/csv"
	"io"
)

// WriteBlacklistCSV writes the full-form blacklist CSV (spec.md §4.8
// columns: imei_norm, block_date, reasons[]).
func WriteBlacklistCSV(w io.Writer, rows []BlacklistRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"imei_norm", "block_date", "reasons"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.ImeiNorm, r.BlockDate.Format("20060102"), JoinReasons(r.Reasons)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBlacklistDeltaCSV writes the delta-form blacklist CSV, adding a
// change_type column.
func WriteBlacklistDeltaCSV(w io.Writer, deltas []BlacklistDelta) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"imei_norm", "block_date", "reasons", "change_type"}); err != nil {
		return err
	}
	for _, d := range deltas {
		if err := cw.Write([]string{
			d.Row.ImeiNorm, d.Row.BlockDate.Format("20060102"), JoinReasons(d.Row.Reasons), string(d.Kind),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNotificationsCSV writes the full-form notifications list CSV.
func WriteNotificationsCSV(w io.Writer, rows []NotificationRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"imei_norm", "imsi", "msisdn", "block_date", "reasons"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.ImeiNorm, r.Imsi, r.Msisdn, r.BlockDate.Format("20060102"), JoinReasons(r.Reasons),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExceptionsCSV writes the full-form exceptions list CSV.
func WriteExceptionsCSV(w io.Writer, rows []ExceptionRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"imei", "imsi"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Imei, r.Imsi}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNotificationsDeltaCSV writes the delta-form notifications list
// CSV, adding a change_type column.
func WriteNotificationsDeltaCSV(w io.Writer, deltas []NotificationDelta) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"imei_norm", "imsi", "msisdn", "block_date", "reasons", "change_type"}); err != nil {
		return err
	}
	for _, d := range deltas {
		if err := cw.Write([]string{
			d.Row.ImeiNorm, d.Row.Imsi, d.Row.Msisdn, d.Row.BlockDate.Format("20060102"), JoinReasons(d.Row.Reasons), string(d.Kind),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExceptionsDeltaCSV writes the delta-form exceptions list CSV,
// adding a change_type column.
func WriteExceptionsDeltaCSV(w io.Writer, deltas []ExceptionDelta) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"imei", "imsi", "change_type"}); err != nil {
		return err
	}
	for _, d := range deltas {
		if err := cw.Write([]string{d.Row.Imei, d.Row.Imsi, string(d.Kind)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
