package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

// Mode selects how a keyed table is pushed.
type Mode int

const (
	// Incremental appends only records whose id is not in the sheet yet.
	Incremental Mode = iota
	// Overwrite clears the tab and writes every local record.
	Overwrite
)

func (m Mode) String() string {
	if m == Overwrite {
		return "overwrite"
	}
	return "incremental"
}

// Op distinguishes the two directions.
type Op string

const (
	OpSync    Op = "sync"
	OpRestore Op = "restore"
)

// Anomaly is a value that could not be converted and was kept verbatim.
type Anomaly struct {
	RecordID string
	Column   string
	Value    string
	Err      error
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s.%s: %v", a.RecordID, a.Column, a.Err)
}

// Report is the outcome of one table sync or restore.
type Report struct {
	Op    Op
	Table schema.Table
	Mode  Mode // effective mode, sync only

	// Rows is the number of data rows written to the sheet (sync) or
	// records written to the store (restore).
	Rows int
	// Remote is the number of ids already in the sheet (incremental sync).
	Remote int

	Skipped   []*MalformedDataError
	Anomalies []Anomaly

	// HeaderDrift is the remote header found by an incremental sync when it
	// did not match the table layout. The tab was rewritten instead.
	HeaderDrift []string

	Err      error
	Duration time.Duration
}

// OK reports whether the table succeeded.
func (r *Report) OK() bool {
	return r.Err == nil
}

// Summary is a one-line human readable outcome.
func (r *Report) Summary() string {
	var b strings.Builder
	b.WriteString(r.Table.String())
	b.WriteString(": ")
	if r.Err != nil {
		b.WriteString("FAILED: ")
		b.WriteString(r.Err.Error())
		return b.String()
	}

	switch {
	case r.Op == OpRestore:
		fmt.Fprintf(&b, "restored %s", plural(r.Rows, "record"))
	case r.Mode == Overwrite:
		fmt.Fprintf(&b, "overwrote sheet with %s", plural(r.Rows, "row"))
	case r.Rows == 0:
		fmt.Fprintf(&b, "up to date (%s in sheet)", plural(r.Remote, "row"))
	default:
		fmt.Fprintf(&b, "appended %s (%d already in sheet)", plural(r.Rows, "new row"), r.Remote)
	}
	if r.HeaderDrift != nil {
		b.WriteString(" (tab header realigned)")
	}
	if n := len(r.Anomalies); n > 0 {
		fmt.Fprintf(&b, ", %s", plural(n, "anomaly"))
	}
	if n := len(r.Skipped); n > 0 {
		fmt.Fprintf(&b, ", %s skipped", plural(n, "record"))
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// AggregateReport collects the table reports of one SyncAll, SyncTables or
// RestoreAll run.
type AggregateReport struct {
	Op      Op
	Mode    Mode
	Reports []*Report

	// Err is set when the run was aborted before every table was handled.
	Err error
}

// Report returns the report of a table, or nil if it was not handled.
func (a *AggregateReport) Report(t schema.Table) *Report {
	for _, r := range a.Reports {
		if r.Table == t {
			return r
		}
	}
	return nil
}

// Failed returns the tables that failed.
func (a *AggregateReport) Failed() []schema.Table {
	var out []schema.Table
	for _, r := range a.Reports {
		if !r.OK() {
			out = append(out, r.Table)
		}
	}
	return out
}

// Success reports whether the run was not aborted and every table
// succeeded.
func (a *AggregateReport) Success() bool {
	return a.Err == nil && len(a.Reports) > 0 && len(a.Failed()) == 0
}

// Message enumerates the outcome of every table.
func (a *AggregateReport) Message() string {
	var b strings.Builder
	verb := "Sync"
	if a.Op == OpRestore {
		verb = "Restore"
	}
	ok := len(a.Reports) - len(a.Failed())
	switch {
	case a.Err != nil:
		fmt.Fprintf(&b, "%s aborted: %v", verb, a.Err)
	case a.Success():
		fmt.Fprintf(&b, "%s complete: %d/%d tables succeeded", verb, ok, len(a.Reports))
	default:
		fmt.Fprintf(&b, "%s finished with errors: %d/%d tables succeeded", verb, ok, len(a.Reports))
	}
	for _, r := range a.Reports {
		b.WriteString("\n  ")
		b.WriteString(r.Summary())
	}
	return b.String()
}
