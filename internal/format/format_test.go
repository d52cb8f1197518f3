package format

import (
	"errors"
	"testing"
	"time"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

func fixedFormatter() *Formatter {
	wib := time.FixedZone("WIB", 7*60*60)
	now := time.Date(2024, time.May, 1, 9, 30, 0, 0, wib)
	return New(wib).WithClock(func() time.Time { return now })
}

func TestFormatForSheet_Date(t *testing.T) {
	f := fixedFormatter()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"canonical", "2024-05-01", "2024-05-01", false},
		{"slashed iso", "2024/05/01", "2024-05-01", false},
		{"day first", "01/05/2024", "2024-05-01", false},
		{"day first short", "1/5/2024", "2024-05-01", false},
		{"dashed day first", "01-05-2024", "2024-05-01", false},
		{"long month", "1 May 2024", "2024-05-01", false},
		{"timestamp input", "2024-05-01 23:59:59", "2024-05-01", false},
		{"serial", "45413", "2024-05-01", false},
		{"serial with fraction", "45413.75", "2024-05-01", false},
		{"quoted", "'2024-05-01", "2024-05-01", false},
		{"empty", "", "", false},
		{"garbage", "next week-ish", "next week-ish", true},
		{"bare year", "2025", "2025", true},
		{"small number", "12", "12", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.FormatForSheet(tt.in, schema.KindDate)
			if tt.wantErr {
				if !errors.Is(err, ErrUnparseable) {
					t.Fatalf("expected ErrUnparseable, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("FormatForSheet failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatForSheet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatForSheet_Timestamp(t *testing.T) {
	f := fixedFormatter()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"canonical kept", "2024-05-01 09:00:00", "2024-05-01 09:00:00", false},
		{"naive iso not shifted", "2024-05-01T09:00:00", "2024-05-01 09:00:00", false},
		{"utc converted to civil", "2024-05-01T02:00:00Z", "2024-05-01 09:00:00", false},
		{"offset converted to civil", "2024-05-01T10:00:00+08:00", "2024-05-01 09:00:00", false},
		{"fractional seconds dropped", "2024-05-01 09:00:00.123456", "2024-05-01 09:00:00", false},
		{"date only", "2024-05-01", "2024-05-01 00:00:00", false},
		{"serial half day", "45413.5", "2024-05-01 12:00:00", false},
		{"garbage", "kemarin", "kemarin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.FormatForSheet(tt.in, schema.KindTimestamp)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
			} else if err != nil {
				t.Fatalf("FormatForSheet failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatForSheet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatForSheet_IdentifierAndPlainUnchanged(t *testing.T) {
	f := fixedFormatter()
	for _, kind := range []schema.Kind{schema.KindIdentifier, schema.KindPlain} {
		got, err := f.FormatForSheet("0012-ab", kind)
		if err != nil {
			t.Fatalf("FormatForSheet(%v) failed: %v", kind, err)
		}
		if got != "0012-ab" {
			t.Errorf("FormatForSheet(%v) = %q, want unchanged", kind, got)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0812-3456-7890", "081234567890", false},
		{"0812 345 678", "0812345678", false},
		{"+62 812 345", "62812345", false},
		{"'08123", "08123", false},
		{"", "", false},
		{"n/a", "n/a", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := FormatPhone(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormatPhone(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FormatPhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatCell_Phone(t *testing.T) {
	f := fixedFormatter()
	col, _ := schema.ActivityTable.Column("contact_phone")
	got, err := f.FormatCell(col, "0812-345")
	if err != nil {
		t.Fatalf("FormatCell failed: %v", err)
	}
	if got != "0812345" {
		t.Errorf("FormatCell = %q, want 0812345", got)
	}
}

func TestParseFromSheet(t *testing.T) {
	f := fixedFormatter()

	tests := []struct {
		name string
		in   string
		kind schema.Kind
		want string
	}{
		{"identifier apostrophe", "'act-0001", schema.KindIdentifier, "act-0001"},
		{"date serial", "45413", schema.KindDate, "2024-05-01"},
		{"date canonical", "2024-05-01", schema.KindDate, "2024-05-01"},
		{"timestamp canonical", "2024-05-01 09:00:00", schema.KindTimestamp, "2024-05-01 09:00:00"},
		{"plain", "'quoted on purpose", schema.KindPlain, "'quoted on purpose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ParseFromSheet(tt.in, tt.kind)
			if err != nil {
				t.Fatalf("ParseFromSheet failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFromSheet(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFromSheet_RetainsRawOnFailure(t *testing.T) {
	got, err := ParseFromSheet("sometime in May", schema.KindDate)
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != "date" {
		t.Errorf("expected date ParseError, got %v", err)
	}
	if got != "sometime in May" {
		t.Errorf("raw value not retained: %q", got)
	}
}

func TestDateRoundTrip(t *testing.T) {
	f := fixedFormatter()
	for _, d := range []string{"2024-01-31", "2023-12-31", "2000-02-29"} {
		out, err := f.FormatForSheet(d, schema.KindDate)
		if err != nil {
			t.Fatalf("FormatForSheet(%q) failed: %v", d, err)
		}
		back, err := f.ParseFromSheet(out, schema.KindDate)
		if err != nil {
			t.Fatalf("ParseFromSheet(%q) failed: %v", out, err)
		}
		if back != d {
			t.Errorf("round trip %q -> %q -> %q", d, out, back)
		}
	}
}

func TestNow(t *testing.T) {
	f := fixedFormatter()
	if got := f.Now(); got != "2024-05-01 09:30:00" {
		t.Errorf("Now() = %q", got)
	}
	if got := f.Today(); got != "2024-05-01" {
		t.Errorf("Today() = %q", got)
	}
}

func TestParseHumanDate(t *testing.T) {
	f := fixedFormatter()

	got, err := f.ParseHumanDate("03/05/2024")
	if err != nil {
		t.Fatalf("ParseHumanDate failed: %v", err)
	}
	if got != "2024-05-03" {
		t.Errorf("ParseHumanDate layout = %q", got)
	}

	got, err = f.ParseHumanDate("tomorrow")
	if err != nil {
		t.Fatalf("ParseHumanDate(tomorrow) failed: %v", err)
	}
	if got != "2024-05-02" {
		t.Errorf("ParseHumanDate(tomorrow) = %q, want 2024-05-02", got)
	}

	if _, err := f.ParseHumanDate("zzz"); err == nil {
		t.Error("expected error for unparseable input")
	}
}

func TestDaysUntil(t *testing.T) {
	f := fixedFormatter()
	tests := []struct {
		date string
		want int
	}{
		{"2024-05-01", 0},
		{"2024-05-03", 2},
		{"2024-04-30", -1},
	}
	for _, tt := range tests {
		got, err := f.DaysUntil(tt.date)
		if err != nil {
			t.Fatalf("DaysUntil(%q) failed: %v", tt.date, err)
		}
		if got != tt.want {
			t.Errorf("DaysUntil(%q) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestDaysUntil_AcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	// Clocks spring forward on 2024-03-10.
	f := New(loc).WithClock(func() time.Time {
		return time.Date(2024, 3, 9, 12, 0, 0, 0, loc)
	})
	got, err := f.DaysUntil("2024-03-11")
	if err != nil {
		t.Fatalf("DaysUntil failed: %v", err)
	}
	if got != 2 {
		t.Errorf("DaysUntil across DST = %d, want 2", got)
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("WIB")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	_, off := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	if off != 7*60*60 {
		t.Errorf("WIB offset = %d, want %d", off, 7*60*60)
	}
	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Error("expected error for unknown zone")
	}
}
