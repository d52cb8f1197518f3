// Package sheets reads and writes the spreadsheet that mirrors the local
// record store.
//
// Each table lives in its own tab. The first row of a tab is the header
// (the table's column names in registry order) and every following row is
// one record. Gateway hides the spreadsheet API behind a handful of
// table-level operations; GoogleGateway talks to the Google Sheets v4 API
// and MemoryGateway keeps the grid in memory for tests and offline runs.
//
// Every failure is returned as a *GatewayError classified by Kind, so
// callers can tell a missing tab from a revoked credential:
//
//	rows, err := gw.ReadAllRows(ctx, schema.ActivityTable)
//	switch {
//	case sheets.IsNotFound(err):
//	    // skip this table
//	case sheets.IsFatal(err):
//	    // stop, nothing else will work
//	}
package sheets

import (
	"context"
	"strings"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

// Row is one data row of a tab keyed by header name. Cells missing from
// the sheet are absent from the map.
type Row map[string]string

// Gateway is the table-level view of the mirror spreadsheet.
type Gateway interface {
	// Connect establishes the connection. Calling it again reuses the
	// existing connection after a liveness probe and reconnects if the
	// probe fails.
	Connect(ctx context.Context) error

	// Title returns the spreadsheet title seen by the last Connect.
	Title() string

	// Tabs lists the tab titles of the spreadsheet.
	Tabs(ctx context.Context) ([]string, error)

	// VerifyTablesExist returns the tables whose tab is missing. It never
	// creates tabs.
	VerifyTablesExist(ctx context.Context) ([]schema.Table, error)

	// CreateTab creates the table's tab and writes its header row. It is
	// a no-op when the tab exists.
	CreateTab(ctx context.Context, table schema.Table) error

	// ReadAllRows returns every data row of the table's tab.
	ReadAllRows(ctx context.Context, table schema.Table) ([]Row, error)

	// ReadHeader returns the header row of the table's tab with trailing
	// blank cells dropped. An empty tab yields an empty slice.
	ReadHeader(ctx context.Context, table schema.Table) ([]string, error)

	// ReadColumn returns the data cells of one column, header excluded.
	// An empty tab yields an empty slice.
	ReadColumn(ctx context.Context, table schema.Table, column string) ([]string, error)

	// Overwrite clears the tab and writes header and rows in one call.
	Overwrite(ctx context.Context, table schema.Table, header []string, rows [][]string) error

	// AppendRows appends rows after the last data row. When the tab is
	// completely empty the header row is written first.
	AppendRows(ctx context.Context, table schema.Table, rows [][]string) error
}

// TabNames maps tables to tab titles.
type TabNames map[schema.Table]string

// DefaultTabNames returns Activities, Followups, Users and Config.
func DefaultTabNames() TabNames {
	names := TabNames{}
	for _, t := range schema.Tables() {
		names[t] = t.DefaultTab()
	}
	return names
}

// Tab returns the configured title, falling back to the default.
func (n TabNames) Tab(t schema.Table) string {
	if name, ok := n[t]; ok && name != "" {
		return name
	}
	return t.DefaultTab()
}

// rowsFromGrid turns a raw grid into header-keyed rows. Fully empty rows
// are dropped.
func rowsFromGrid(grid [][]string) []Row {
	if len(grid) == 0 {
		return []Row{}
	}
	header := grid[0]
	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := Row{}
		empty := true
		for i, name := range header {
			if name == "" || i >= len(cells) {
				continue
			}
			row[name] = cells[i]
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows
}

// columnFromGrid returns the data cells under the named header column.
func columnFromGrid(grid [][]string, column string) ([]string, bool) {
	if len(grid) == 0 {
		return []string{}, true
	}
	idx := -1
	for i, name := range grid[0] {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if idx < len(cells) {
			out = append(out, cells[idx])
		} else {
			out = append(out, "")
		}
	}
	return out, true
}

// gridEmpty reports whether a grid has no non-empty cell.
// headerOf returns the first row of a grid without trailing blanks.
func headerOf(grid [][]string) []string {
	if len(grid) == 0 {
		return []string{}
	}
	row := grid[0]
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	return append([]string{}, row[:n]...)
}

func gridEmpty(grid [][]string) bool {
	for _, row := range grid {
		for _, c := range row {
			if c != "" {
				return false
			}
		}
	}
	return true
}
