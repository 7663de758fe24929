package listgen

// ChangeKind classifies one delta row (spec.md §4.8 delta computation).
type ChangeKind string

const (
	ChangeNew          ChangeKind = "new"
	ChangeResolved     ChangeKind = "resolved"
	ChangeChanged      ChangeKind = "changed"
	ChangeBlacklisted  ChangeKind = "blacklisted"
	ChangeNoLongerSeen ChangeKind = "no_longer_seen"
)

// BlacklistDelta is one blacklist delta row.
type BlacklistDelta struct {
	Row  BlacklistRow
	Kind ChangeKind
}

// ComputeBlacklistDelta compares current against previous by imei_norm
// (spec.md §4.8): new (only in current), resolved (only in previous),
// changed (in both, with differing reasons or block_date). Rows in both
// and unchanged are omitted. baseRunID is not used in the comparison.
func ComputeBlacklistDelta(current, previous []BlacklistRow, baseRunID int64) []BlacklistDelta {
	prevByKey := make(map[string]BlacklistRow, len(previous))
	for _, r := range previous {
		prevByKey[r.ImeiNorm] = r
	}
	currByKey := make(map[string]BlacklistRow, len(current))
	for _, r := range current {
		currByKey[r.ImeiNorm] = r
	}

	var out []BlacklistDelta
	for _, r := range current {
		prev, wasPresent := prevByKey[r.ImeiNorm]
		switch {
		case !wasPresent:
			out = append(out, BlacklistDelta{Row: r, Kind: ChangeNew})
		case !reasonsEqual(prev.Reasons, r.Reasons) || !prev.BlockDate.Equal(r.BlockDate):
			out = append(out, BlacklistDelta{Row: r, Kind: ChangeChanged})
		}
	}
	for _, r := range previous {
		if _, stillPresent := currByKey[r.ImeiNorm]; !stillPresent {
			out = append(out, BlacklistDelta{Row: r, Kind: ChangeResolved})
		}
	}
	return out
}

// NotificationDelta is one notifications-list delta row, additionally
// distinguishing the blacklisted and no_longer_seen transitions.
type NotificationDelta struct {
	Row  NotificationRow
	Kind ChangeKind
}

// ComputeNotificationDelta classifies notifications_list rows against
// the previous run, plus cross-references the current blacklist to
// detect the notifications→blacklist transition (spec.md §4.8:
// "blacklisted: transition from notifications_list to blacklist").
// currentlyBlacklisted is the set of imei_norm values on the current
// blacklist.
func ComputeNotificationDelta(current, previous []NotificationRow, currentlyBlacklisted map[string]bool) []NotificationDelta {
	prevByKey := make(map[string]NotificationRow, len(previous))
	for _, r := range previous {
		prevByKey[r.ImeiNorm+"|"+r.Imsi+"|"+r.Msisdn] = r
	}
	currByKey := make(map[string]NotificationRow, len(current))
	for _, r := range current {
		currByKey[r.ImeiNorm+"|"+r.Imsi+"|"+r.Msisdn] = r
	}

	var out []NotificationDelta
	for _, r := range current {
		key := r.ImeiNorm + "|" + r.Imsi + "|" + r.Msisdn
		prev, wasPresent := prevByKey[key]
		switch {
		case !wasPresent:
			out = append(out, NotificationDelta{Row: r, Kind: ChangeNew})
		case !reasonsEqual(prev.Reasons, r.Reasons) || !prev.BlockDate.Equal(r.BlockDate):
			out = append(out, NotificationDelta{Row: r, Kind: ChangeChanged})
		}
	}
	for _, r := range previous {
		key := r.ImeiNorm + "|" + r.Imsi + "|" + r.Msisdn
		if _, stillPresent := currByKey[key]; stillPresent {
			continue
		}
		if currentlyBlacklisted[r.ImeiNorm] {
			out = append(out, NotificationDelta{Row: r, Kind: ChangeBlacklisted})
		} else {
			out = append(out, NotificationDelta{Row: r, Kind: ChangeNoLongerSeen})
		}
	}
	return out
}

// ExceptionDelta is one exceptions-list delta row. Exceptions pairs have
// no reasons/block_date to change, so only new/resolved occur.
type ExceptionDelta struct {
	Row  ExceptionRow
	Kind ChangeKind
}

// ComputeExceptionsDelta classifies exceptions_list rows against the
// previous run by (imei, imsi) pair membership.
func ComputeExceptionsDelta(current, previous []ExceptionRow) []ExceptionDelta {
	prevByKey := make(map[string]bool, len(previous))
	for _, r := range previous {
		prevByKey[r.Imei+"|"+r.Imsi] = true
	}
	currByKey := make(map[string]bool, len(current))
	for _, r := range current {
		currByKey[r.Imei+"|"+r.Imsi] = true
	}

	var out []ExceptionDelta
	for _, r := range current {
		if !prevByKey[r.Imei+"|"+r.Imsi] {
			out = append(out, ExceptionDelta{Row: r, Kind: ChangeNew})
		}
	}
	for _, r := range previous {
		if !currByKey[r.Imei+"|"+r.Imsi] {
			out = append(out, ExceptionDelta{Row: r, Kind: ChangeResolved})
		}
	}
	return out
}

func reasonsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
