package listgen

import (
	"testing"
	"time"
)

func TestComputeBlacklistDeltaNew(t *testing.T) {
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	current := []BlacklistRow{{ImeiNorm: "123", BlockDate: now, Reasons: []string{"stolen"}}}
	deltas := ComputeBlacklistDelta(current, nil, 1)
	if len(deltas) != 1 || deltas[0].Kind != ChangeNew {
		t.Fatalf("deltas = %+v", deltas)
	}
}

func TestComputeBlacklistDeltaResolved(t *testing.T) {
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	previous := []BlacklistRow{{ImeiNorm: "123", BlockDate: now, Reasons: []string{"stolen"}}}
	deltas := ComputeBlacklistDelta(nil, previous, 1)
	if len(deltas) != 1 || deltas[0].Kind != ChangeResolved {
		t.Fatalf("deltas = %+v", deltas)
	}
}

func TestComputeBlacklistDeltaChangedReasons(t *testing.T) {
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	previous := []BlacklistRow{{ImeiNorm: "123", BlockDate: now, Reasons: []string{"stolen"}}}
	current := []BlacklistRow{{ImeiNorm: "123", BlockDate: now, Reasons: []string{"stolen", "duplicate_large"}}}
	deltas := ComputeBlacklistDelta(current, previous, 1)
	if len(deltas) != 1 || deltas[0].Kind != ChangeChanged {
		t.Fatalf("deltas = %+v", deltas)
	}
}

func TestComputeBlacklistDeltaUnchangedProducesNoDelta(t *testing.T) {
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	row := BlacklistRow{ImeiNorm: "123", BlockDate: now, Reasons: []string{"stolen"}}
	deltas := ComputeBlacklistDelta([]BlacklistRow{row}, []BlacklistRow{row}, 1)
	if len(deltas) != 0 {
		t.Fatalf("expected no deltas for unchanged row, got %+v", deltas)
	}
}

func TestComputeNotificationDeltaBlacklistedTransition(t *testing.T) {
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	previous := []NotificationRow{{ImeiNorm: "123", Imsi: "i1", Msisdn: "m1", BlockDate: now}}
	deltas := ComputeNotificationDelta(nil, previous, map[string]bool{"123": true})
	if len(deltas) != 1 || deltas[0].Kind != ChangeBlacklisted {
		t.Fatalf("deltas = %+v", deltas)
	}
}

func TestComputeNotificationDeltaNoLongerSeen(t *testing.T) {
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	previous := []NotificationRow{{ImeiNorm: "123", Imsi: "i1", Msisdn: "m1", BlockDate: now}}
	deltas := ComputeNotificationDelta(nil, previous, map[string]bool{})
	if len(deltas) != 1 || deltas[0].Kind != ChangeNoLongerSeen {
		t.Fatalf("deltas = %+v", deltas)
	}
}
