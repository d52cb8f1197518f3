package format

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var humanParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseHumanDate accepts either a date in one of the known layouts or a
// natural phrase such as "today" or "next friday", resolved against now.
// The result is a canonical YYYY-MM-DD date.
func (f *Formatter) ParseHumanDate(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	if d, err := f.normalizeDate(s); err == nil {
		return d, nil
	}
	now := f.now().In(f.loc)
	r, err := humanParser.Parse(s, now)
	if err != nil || r == nil {
		return input, &ParseError{Value: input, Kind: "date"}
	}
	return r.Time.In(f.loc).Format(DateLayout), nil
}

// DaysUntil returns the whole civil days from today to date, negative for
// past dates.
func (f *Formatter) DaysUntil(date string) (int, error) {
	// Both ends are midnights in UTC so DST shifts in f.loc cannot
	// shorten a day.
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, &ParseError{Value: date, Kind: "date"}
	}
	now := f.now().In(f.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(today).Hours() / 24), nil
}
