package sync

import (
	"errors"
	"strings"
	"testing"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

func TestReport_Summary(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   string
	}{
		{
			name:   "appended",
			report: Report{Op: OpSync, Table: schema.ActivityTable, Mode: Incremental, Rows: 3, Remote: 5},
			want:   "activities: appended 3 new rows (5 already in sheet)",
		},
		{
			name:   "up to date",
			report: Report{Op: OpSync, Table: schema.UserTable, Mode: Incremental, Remote: 1},
			want:   "users: up to date (1 row in sheet)",
		},
		{
			name:   "overwrite",
			report: Report{Op: OpSync, Table: schema.ConfigTable, Mode: Overwrite, Rows: 8},
			want:   "config: overwrote sheet with 8 rows",
		},
		{
			name:   "restore",
			report: Report{Op: OpRestore, Table: schema.FollowupTable, Rows: 1},
			want:   "followups: restored 1 record",
		},
		{
			name: "anomalies and skipped",
			report: Report{
				Op: OpSync, Table: schema.ActivityTable, Mode: Overwrite, Rows: 2,
				Anomalies: []Anomaly{{}, {}},
				Skipped:   []*MalformedDataError{{}},
			},
			want: "activities: overwrote sheet with 2 rows, 2 anomalies, 1 record skipped",
		},
		{
			name:   "failed",
			report: Report{Op: OpSync, Table: schema.UserTable, Err: errors.New("boom")},
			want:   "users: FAILED: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregateReport_Message(t *testing.T) {
	agg := &AggregateReport{Op: OpSync, Reports: []*Report{
		{Op: OpSync, Table: schema.ActivityTable, Rows: 1},
		{Op: OpSync, Table: schema.FollowupTable, Err: errors.New("tab missing")},
	}}
	if agg.Success() {
		t.Error("Success() should be false with a failed table")
	}
	want := "Sync finished with errors: 1/2 tables succeeded\n" +
		"  activities: appended 1 new row (0 already in sheet)\n" +
		"  followups: FAILED: tab missing"
	if got := agg.Message(); got != want {
		t.Errorf("Message() =\n%s\nwant\n%s", got, want)
	}

	empty := &AggregateReport{Op: OpRestore}
	if empty.Success() {
		t.Error("an empty run is not a success")
	}

	aborted := &AggregateReport{Op: OpRestore, Err: &ConnectionError{Err: errors.New("offline")}}
	if !strings.HasPrefix(aborted.Message(), "Restore aborted: cannot connect to spreadsheet: offline") {
		t.Errorf("unexpected aborted message: %q", aborted.Message())
	}
}

func TestMalformedDataError(t *testing.T) {
	cause := errors.New("invalid status")
	tests := []struct {
		err  *MalformedDataError
		want string
	}{
		{&MalformedDataError{Table: schema.UserTable, Row: 3, Err: cause}, "users row 3: invalid status"},
		{&MalformedDataError{Table: schema.ActivityTable, RecordID: "act-1", Err: cause}, `activities record "act-1": invalid status`},
	}
	for _, tt := range tests {
		if tt.err.Error() != tt.want {
			t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
		}
		if !errors.Is(tt.err, cause) {
			t.Error("MalformedDataError should unwrap to its cause")
		}
	}
}

func TestModeString(t *testing.T) {
	if Incremental.String() != "incremental" || Overwrite.String() != "overwrite" {
		t.Errorf("unexpected mode names: %s, %s", Incremental, Overwrite)
	}
}
