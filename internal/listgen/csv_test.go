package listgen

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWriteBlacklistCSV(t *testing.T) {
	rows := []BlacklistRow{{ImeiNorm: "64220297727231", BlockDate: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), Reasons: []string{"local_stolen"}}}
	var buf bytes.Buffer
	if err := WriteBlacklistCSV(&buf, rows); err != nil {
		t.Fatalf("WriteBlacklistCSV() error: %v", err)
	}
	want := "imei_norm,block_date,reasons\n64220297727231,20170101,local_stolen\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteBlacklistDeltaCSV(t *testing.T) {
	deltas := []BlacklistDelta{{
		Row:  BlacklistRow{ImeiNorm: "123", BlockDate: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), Reasons: []string{"stolen"}},
		Kind: ChangeNew,
	}}
	var buf bytes.Buffer
	if err := WriteBlacklistDeltaCSV(&buf, deltas); err != nil {
		t.Fatalf("error: %v", err)
	}
	if !strings.Contains(buf.String(), "new") {
		t.Errorf("expected change_type column in output: %q", buf.String())
	}
}

func TestWriteNotificationsCSV(t *testing.T) {
	rows := []NotificationRow{{ImeiNorm: "1", Imsi: "2", Msisdn: "3", BlockDate: time.Date(2017, 2, 1, 0, 0, 0, 0, time.UTC), Reasons: []string{"stolen"}}}
	var buf bytes.Buffer
	if err := WriteNotificationsCSV(&buf, rows); err != nil {
		t.Fatalf("error: %v", err)
	}
	want := "imei_norm,imsi,msisdn,block_date,reasons\n1,2,3,20170201,stolen\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteExceptionsCSV(t *testing.T) {
	rows := []ExceptionRow{{Imei: "1", Imsi: "2"}}
	var buf bytes.Buffer
	if err := WriteExceptionsCSV(&buf, rows); err != nil {
		t.Fatalf("error: %v", err)
	}
	want := "imei,imsi\n1,2\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
