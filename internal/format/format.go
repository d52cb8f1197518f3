// Package format converts record values to and from spreadsheet cell text.
//
// Dates are normalised to YYYY-MM-DD, timestamps to YYYY-MM-DD HH:MM:SS in
// a fixed civil time zone (WIB by default), phone numbers to digits only.
// Identifiers and other plain values pass through untouched. When a value
// cannot be converted the original text is returned together with a
// *ParseError, so callers can keep the value and record an anomaly.
package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

const (
	// DateLayout is the canonical date form.
	DateLayout = "2006-01-02"
	// TimestampLayout is the canonical timestamp form.
	TimestampLayout = "2006-01-02 15:04:05"

	// DefaultZone is the civil time zone records are captured in.
	DefaultZone = "Asia/Jakarta"
)

// Day serials accepted as dates: 10000 is 1927-05-18, 2958465 is
// 9999-12-31. Smaller numbers are far more likely a year or a count.
const (
	minSerial = 10000
	maxSerial = 2958465
)

// ErrUnparseable is matched by every *ParseError.
var ErrUnparseable = errors.New("unparseable value")

// ParseError reports a value that could not be converted for its kind.
type ParseError struct {
	Value string
	Kind  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.Value, e.Kind)
}

// Is makes errors.Is(err, ErrUnparseable) true for any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrUnparseable
}

// dateLayouts are tried in order. Day-first slashed dates win over
// month-first ones, matching how the team types dates.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"20060102",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// naiveTimestampLayouts carry no zone and are read as civil time.
var naiveTimestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// zonedTimestampLayouts carry an explicit offset and are converted.
var zonedTimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05 -0700",
}

// Formatter converts values using a fixed civil time zone.
type Formatter struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Formatter for the given zone. A nil zone means WIB.
func New(loc *time.Location) *Formatter {
	if loc == nil {
		loc = WIB()
	}
	return &Formatter{loc: loc, now: time.Now}
}

// WithClock returns a copy of f whose Now reads from clock.
func (f *Formatter) WithClock(clock func() time.Time) *Formatter {
	c := *f
	c.now = clock
	return &c
}

// WIB returns Western Indonesia Time. It falls back to a fixed UTC+7 zone
// when the tz database is not available.
func WIB() *time.Location {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

// LoadLocation resolves a zone name, with "" and "WIB" meaning WIB.
func LoadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "WIB", DefaultZone:
		return WIB(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	return loc, nil
}

// Location returns the formatter's civil time zone.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Now returns the current civil time as a canonical timestamp.
func (f *Formatter) Now() string {
	return f.now().In(f.loc).Format(TimestampLayout)
}

// Today returns the current civil date.
func (f *Formatter) Today() string {
	return f.now().In(f.loc).Format(DateLayout)
}

// FormatForSheet converts a stored value to sheet text for a column kind.
func (f *Formatter) FormatForSheet(value string, kind schema.Kind) (string, error) {
	switch kind {
	case schema.KindDate:
		return f.normalizeDate(value)
	case schema.KindTimestamp:
		return f.normalizeTimestamp(value)
	default:
		return value, nil
	}
}

// ParseFromSheet converts sheet text back to a stored value. Identifiers
// lose the leading apostrophe some editors add to force text.
func (f *Formatter) ParseFromSheet(text string, kind schema.Kind) (string, error) {
	switch kind {
	case schema.KindDate:
		return f.normalizeDate(text)
	case schema.KindTimestamp:
		return f.normalizeTimestamp(text)
	case schema.KindIdentifier:
		return strings.TrimPrefix(text, "'"), nil
	default:
		return text, nil
	}
}

// FormatCell is FormatForSheet with phone handling for flagged columns.
func (f *Formatter) FormatCell(col schema.Column, value string) (string, error) {
	if col.Phone {
		return FormatPhone(value)
	}
	return f.FormatForSheet(value, col.Kind)
}

// ParseCell is ParseFromSheet with phone handling for flagged columns.
func (f *Formatter) ParseCell(col schema.Column, text string) (string, error) {
	if col.Phone {
		return strings.TrimPrefix(text, "'"), nil
	}
	return f.ParseFromSheet(text, col.Kind)
}

// FormatPhone strips everything but digits. Leading zeros are kept.
func FormatPhone(value string) (string, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "'")
	if value == "" {
		return "", nil
	}
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return value, &ParseError{Value: value, Kind: "phone"}
	}
	return b.String(), nil
}

func (f *Formatter) normalizeDate(value string) (string, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "'")
	if s == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, f.loc); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	if t, ok := f.parseTimestamp(s); ok {
		return t.Format(DateLayout), nil
	}
	if t, ok := f.fromSerial(s); ok {
		return t.Format(DateLayout), nil
	}
	return value, &ParseError{Value: value, Kind: "date"}
}

func (f *Formatter) normalizeTimestamp(value string) (string, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "'")
	if s == "" {
		return "", nil
	}
	if t, ok := f.parseTimestamp(s); ok {
		return t.Format(TimestampLayout), nil
	}
	if t, err := time.ParseInLocation(DateLayout, s, f.loc); err == nil {
		return t.Format(TimestampLayout), nil
	}
	if t, ok := f.fromSerial(s); ok {
		return t.Format(TimestampLayout), nil
	}
	return value, &ParseError{Value: value, Kind: "timestamp"}
}

func (f *Formatter) parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range naiveTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, f.loc); err == nil {
			return t, true
		}
	}
	for _, layout := range zonedTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(f.loc), true
		}
	}
	return time.Time{}, false
}

// fromSerial reads a spreadsheet day serial (days since 1899-12-30, the
// fraction being the time of day) as civil time.
func (f *Formatter) fromSerial(s string) (time.Time, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || n < minSerial || n > maxSerial {
		return time.Time{}, false
	}
	days := math.Floor(n)
	secs := math.Round((n - days) * 24 * 60 * 60)
	epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, f.loc)
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), true
}

var std = New(nil)

// FormatForSheet converts a value using the WIB formatter.
func FormatForSheet(value string, kind schema.Kind) (string, error) {
	return std.FormatForSheet(value, kind)
}

// ParseFromSheet converts sheet text using the WIB formatter.
func ParseFromSheet(text string, kind schema.Kind) (string, error) {
	return std.ParseFromSheet(text, kind)
}
