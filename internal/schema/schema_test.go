package schema

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColumnNames_Order(t *testing.T) {
	tests := []struct {
		table Table
		want  []string
	}{
		{ActivityTable, []string{"id", "marketer_username", "prospect_name", "prospect_location",
			"contact_person", "contact_position", "contact_phone", "contact_email",
			"activity_date", "activity_type", "description", "status", "created_at", "updated_at"}},
		{FollowupTable, []string{"id", "activity_id", "marketer_username", "followup_date", "notes",
			"next_action", "next_followup_date", "interest_level", "status_update", "created_at"}},
		{UserTable, []string{"id", "username", "password_hash", "name", "role", "email", "created_at"}},
		{ConfigTable, []string{"Key", "Value"}},
	}

	for _, tt := range tests {
		t.Run(tt.table.String(), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.table.ColumnNames()); diff != "" {
				t.Errorf("ColumnNames() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestColumns_ReturnsCopy(t *testing.T) {
	cols := ActivityTable.Columns()
	cols[0].Name = "mutated"
	if ActivityTable.ColumnNames()[0] != "id" {
		t.Fatal("Columns() exposed the registry slice")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		table  Table
		column string
		want   Kind
	}{
		{ActivityTable, "id", KindIdentifier},
		{ActivityTable, "activity_date", KindDate},
		{ActivityTable, "created_at", KindTimestamp},
		{ActivityTable, "updated_at", KindTimestamp},
		{ActivityTable, "contact_phone", KindPlain},
		{ActivityTable, "description", KindPlain},
		{FollowupTable, "activity_id", KindIdentifier},
		{FollowupTable, "next_followup_date", KindDate},
		{UserTable, "username", KindIdentifier},
		{ConfigTable, "Key", KindIdentifier},
		{ConfigTable, "Value", KindPlain},
		{ActivityTable, "no_such_column", KindPlain},
	}

	for _, tt := range tests {
		t.Run(tt.table.String()+"/"+tt.column, func(t *testing.T) {
			if got := tt.table.Kind(tt.column); got != tt.want {
				t.Errorf("Kind(%q) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}

	phone, ok := ActivityTable.Column("contact_phone")
	if !ok || !phone.Phone {
		t.Errorf("contact_phone should be flagged as phone, got %+v", phone)
	}
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		in      string
		want    Table
		wantErr bool
	}{
		{"activities", ActivityTable, false},
		{"marketing_activities", ActivityTable, false},
		{"Followups", FollowupTable, false},
		{" users ", UserTable, false},
		{"config", ConfigTable, false},
		{"deals", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTable(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTable failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTable(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyed(t *testing.T) {
	for _, tbl := range Tables() {
		want := tbl != ConfigTable
		if tbl.Keyed() != want {
			t.Errorf("%s.Keyed() = %v, want %v", tbl, tbl.Keyed(), want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		if _, err := ParseStatus(string(s)); err != nil {
			t.Errorf("ParseStatus(%q) failed: %v", s, err)
		}
	}
	for _, bad := range []string{"", "open", "Baru", "closed"} {
		if _, err := ParseStatus(bad); err == nil {
			t.Errorf("ParseStatus(%q) should fail", bad)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid activity",
			rec:  &Activity{ID: "act-1", Status: StatusNew},
		},
		{
			name:    "activity missing id",
			rec:     &Activity{Status: StatusNew},
			wantErr: true,
			errMsg:  "id is required",
		},
		{
			name:    "activity bad status",
			rec:     &Activity{ID: "act-1", Status: "closed"},
			wantErr: true,
			errMsg:  "invalid status",
		},
		{
			name: "followup without status update",
			rec:  &Followup{ID: "fu-1", ActivityID: "act-1"},
		},
		{
			name:    "followup bad status update",
			rec:     &Followup{ID: "fu-1", ActivityID: "act-1", StatusUpdate: "won"},
			wantErr: true,
			errMsg:  "invalid status_update",
		},
		{
			name:    "followup missing activity",
			rec:     &Followup{ID: "fu-1"},
			wantErr: true,
			errMsg:  "activity_id is required",
		},
		{
			name:    "user missing username",
			rec:     &User{ID: "usr-1"},
			wantErr: true,
			errMsg:  "username is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want containing %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
		})
	}
}

func TestRow_FollowsColumnOrder(t *testing.T) {
	act := &Activity{
		ID:           "act-1",
		ProspectName: "PT Maju",
		ContactPhone: "08123",
		ActivityDate: "2024-05-01",
		Status:       StatusNew,
		CreatedAt:    "2024-05-01 09:00:00",
	}

	row := Row(act)
	names := ActivityTable.ColumnNames()
	if len(row) != len(names) {
		t.Fatalf("row has %d cells, want %d", len(row), len(names))
	}
	for i, n := range names {
		if row[i] != act.Values()[n] {
			t.Errorf("cell %d (%s) = %q, want %q", i, n, row[i], act.Values()[n])
		}
	}
}

func TestFromValues_MissingColumnsEmpty(t *testing.T) {
	rec, err := FromValues(FollowupTable, map[string]string{"id": "fu-1", "activity_id": "act-1", "extra": "x"})
	if err != nil {
		t.Fatalf("FromValues failed: %v", err)
	}
	want := &Followup{ID: "fu-1", ActivityID: "act-1"}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("FromValues mismatch (-want +got):\n%s", diff)
	}

	if _, err := FromValues(ConfigTable, nil); err == nil {
		t.Error("FromValues(config) should fail")
	}
}

func TestNewID(t *testing.T) {
	tests := []struct {
		table  Table
		prefix string
	}{
		{ActivityTable, "act"},
		{FollowupTable, "fu"},
		{UserTable, "usr"},
	}
	for _, tt := range tests {
		id := NewID(tt.table)
		re := regexp.MustCompile("^" + tt.prefix + "-[0-9a-f]{8}$")
		if !re.MatchString(id) {
			t.Errorf("NewID(%s) = %q, want %s-xxxxxxxx", tt.table, id, tt.prefix)
		}
	}
	if NewID(ActivityTable) == NewID(ActivityTable) {
		t.Error("NewID returned the same id twice")
	}
}
