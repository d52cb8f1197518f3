package sheets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

// Operation names used by MemoryGateway fault injection and call log.
const (
	OpConnect    = "connect"
	OpTabs       = "tabs"
	OpCreateTab  = "create_tab"
	OpRead       = "read"
	OpReadHeader = "read_header"
	OpReadColumn = "read_column"
	OpOverwrite  = "overwrite"
	OpAppend     = "append"
)

// MemoryGateway is an in-process spreadsheet. It behaves like the Google
// backend (header handling, missing tabs, error kinds) and can be told to
// fail specific operations.
type MemoryGateway struct {
	mu       sync.Mutex
	title    string
	names    TabNames
	tabs     map[string][][]string
	failures map[string]error
	calls    []string
	connects int
}

// NewMemoryGateway creates a spreadsheet with an empty tab per table.
func NewMemoryGateway(names TabNames) *MemoryGateway {
	if names == nil {
		names = DefaultTabNames()
	}
	m := &MemoryGateway{
		title:    "Marketing Tracker (memory)",
		names:    names,
		tabs:     map[string][][]string{},
		failures: map[string]error{},
	}
	for _, t := range schema.Tables() {
		m.tabs[names.Tab(t)] = nil
	}
	return m
}

// Fail makes every later call of op on table return err. A nil err clears
// the failure. Use OpConnect with any table to fail Connect.
func (m *MemoryGateway) Fail(op string, table schema.Table, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.failKey(op, table)
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

func (m *MemoryGateway) failKey(op string, table schema.Table) string {
	if op == OpConnect || op == OpTabs {
		return op
	}
	return op + "/" + m.names.Tab(table)
}

// DropTab deletes the table's tab.
func (m *MemoryGateway) DropTab(table schema.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tabs, m.names.Tab(table))
}

// SetGrid replaces the raw content of the table's tab, header included.
func (m *MemoryGateway) SetGrid(table schema.Table, grid [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[m.names.Tab(table)] = copyGrid(grid)
}

// Grid returns a copy of the raw content of the table's tab.
func (m *MemoryGateway) Grid(table schema.Table) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyGrid(m.tabs[m.names.Tab(table)])
}

// Calls returns the log of successful write operations, e.g.
// "append Activities 2".
func (m *MemoryGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Connects returns how many times Connect succeeded.
func (m *MemoryGateway) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

// Connect implements Gateway.Connect.
func (m *MemoryGateway) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(OpConnect, ""); err != nil {
		return err
	}
	m.connects++
	return nil
}

// Title implements Gateway.Title.
func (m *MemoryGateway) Title() string {
	return m.title
}

// Tabs implements Gateway.Tabs.
func (m *MemoryGateway) Tabs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(OpTabs, ""); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(m.tabs))
	for title := range m.tabs {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// VerifyTablesExist implements Gateway.VerifyTablesExist.
func (m *MemoryGateway) VerifyTablesExist(ctx context.Context) ([]schema.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var missing []schema.Table
	for _, t := range schema.Tables() {
		if _, ok := m.tabs[m.names.Tab(t)]; !ok {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// CreateTab implements Gateway.CreateTab.
func (m *MemoryGateway) CreateTab(ctx context.Context, table schema.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab := m.names.Tab(table)
	if err := m.injected(OpCreateTab, tab); err != nil {
		return err
	}
	if _, ok := m.tabs[tab]; ok {
		return nil
	}
	m.tabs[tab] = [][]string{table.ColumnNames()}
	m.calls = append(m.calls, fmt.Sprintf("%s %s", OpCreateTab, tab))
	return nil
}

// ReadAllRows implements Gateway.ReadAllRows.
func (m *MemoryGateway) ReadAllRows(ctx context.Context, table schema.Table) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grid, err := m.tab(OpRead, table)
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid), nil
}

// ReadHeader implements Gateway.ReadHeader.
func (m *MemoryGateway) ReadHeader(ctx context.Context, table schema.Table) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grid, err := m.tab(OpReadHeader, table)
	if err != nil {
		return nil, err
	}
	return headerOf(grid), nil
}

// ReadColumn implements Gateway.ReadColumn.
func (m *MemoryGateway) ReadColumn(ctx context.Context, table schema.Table, column string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grid, err := m.tab(OpReadColumn, table)
	if err != nil {
		return nil, err
	}
	if gridEmpty(grid) {
		return []string{}, nil
	}
	cells, ok := columnFromGrid(grid, column)
	if !ok {
		return nil, newError(KindMalformed, OpReadColumn, m.names.Tab(table),
			fmt.Errorf("header has no %q column", column))
	}
	return cells, nil
}

// Overwrite implements Gateway.Overwrite.
func (m *MemoryGateway) Overwrite(ctx context.Context, table schema.Table, header []string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab := m.names.Tab(table)
	if _, err := m.tab(OpOverwrite, table); err != nil {
		return err
	}
	grid := [][]string{append([]string(nil), header...)}
	grid = append(grid, copyGrid(rows)...)
	m.tabs[tab] = grid
	m.calls = append(m.calls, fmt.Sprintf("%s %s %d", OpOverwrite, tab, len(rows)))
	return nil
}

// AppendRows implements Gateway.AppendRows.
func (m *MemoryGateway) AppendRows(ctx context.Context, table schema.Table, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab := m.names.Tab(table)
	grid, err := m.tab(OpAppend, table)
	if err != nil {
		return err
	}
	if gridEmpty(grid) {
		grid = [][]string{table.ColumnNames()}
	}
	grid = append(grid, copyGrid(rows)...)
	m.tabs[tab] = grid
	m.calls = append(m.calls, fmt.Sprintf("%s %s %d", OpAppend, tab, len(rows)))
	return nil
}

// tab returns the grid of a table after checking injected failures and
// tab existence. Callers hold m.mu.
func (m *MemoryGateway) tab(op string, table schema.Table) ([][]string, error) {
	tab := m.names.Tab(table)
	if err := m.injected(op, tab); err != nil {
		return nil, err
	}
	grid, ok := m.tabs[tab]
	if !ok {
		return nil, newError(KindNotFound, op, tab, fmt.Errorf("no tab named %q", tab))
	}
	return grid, nil
}

func (m *MemoryGateway) injected(op, tab string) error {
	key := op
	if tab != "" {
		key = op + "/" + tab
	}
	err, ok := m.failures[key]
	if !ok {
		return nil
	}
	if _, isGateway := KindOf(err); isGateway {
		return err
	}
	return newError(KindTransient, op, tab, err)
}

func copyGrid(grid [][]string) [][]string {
	if grid == nil {
		return nil
	}
	out := make([][]string, len(grid))
	for i, row := range grid {
		out[i] = append([]string(nil), row...)
	}
	return out
}
