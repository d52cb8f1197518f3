package sheets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

// Value options used for every read and write. RAW keeps identifiers,
// phone numbers and dates as text instead of letting the sheet turn them
// into numbers or date serials.
const (
	valueInputOption  = "RAW"
	valueRenderOption = "FORMATTED_VALUE"
	insertDataOption  = "INSERT_ROWS"
)

// DefaultProbeInterval is how long a successful liveness probe is trusted.
const DefaultProbeInterval = 30 * time.Second

// GoogleConfig configures a GoogleGateway.
type GoogleConfig struct {
	SpreadsheetID string
	Credentials   CredentialSource
	Tabs          TabNames

	// ProbeInterval bounds how long a connection is used without a
	// liveness probe. Zero means DefaultProbeInterval.
	ProbeInterval time.Duration

	// ClientOptions are appended to the API client options. When set and
	// Credentials is empty, credential resolution is skipped so callers
	// can supply their own transport.
	ClientOptions []option.ClientOption

	Logger *log.Logger
}

// GoogleGateway is the Google Sheets v4 implementation of Gateway.
type GoogleGateway struct {
	cfg    GoogleConfig
	logger *log.Logger

	mu        sync.Mutex
	svc       *sheetsapi.Service
	title     string
	tabs      map[string]tabInfo
	lastProbe time.Time
	now       func() time.Time
}

// tabInfo is what the gateway remembers about a tab between probes.
type tabInfo struct {
	id         int64
	rows, cols int64
}

// NewGoogleGateway validates the configuration. No network call is made
// until Connect.
func NewGoogleGateway(cfg GoogleConfig) (*GoogleGateway, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.Tabs == nil {
		cfg.Tabs = DefaultTabNames()
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DefaultProbeInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sheets] ", log.LstdFlags)
	}
	return &GoogleGateway{cfg: cfg, logger: logger, now: time.Now}, nil
}

// Connect implements Gateway.Connect.
func (g *GoogleGateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.svc != nil {
		if err := g.probe(ctx); err == nil {
			return nil
		} else if IsNotFound(err) || errors.Is(err, ErrAuth) {
			return err
		}
		g.logger.Printf("WARNING: cached connection failed liveness probe, reconnecting")
		g.svc = nil
	}
	return g.connect(ctx)
}

func (g *GoogleGateway) connect(ctx context.Context) error {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if g.cfg.Credentials != (CredentialSource{}) || len(g.cfg.ClientOptions) == 0 {
		creds, err := g.cfg.Credentials.Resolve()
		if err != nil {
			return fmt.Errorf("failed to resolve credentials: %w", err)
		}
		g.logger.Printf("Using service account %s from %s", creds.ClientEmail, creds.Origin)
		opts = append(opts, option.WithCredentialsJSON(creds.JSON))
	}
	opts = append(opts, g.cfg.ClientOptions...)

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return newError(KindAuth, OpConnect, "", err)
	}
	g.svc = svc
	if err := g.probe(ctx); err != nil {
		g.svc = nil
		return err
	}
	g.logger.Printf("Connected to spreadsheet %q", g.title)
	return nil
}

// probe fetches the spreadsheet title and tab list. Callers hold g.mu.
func (g *GoogleGateway) probe(ctx context.Context) error {
	ss, err := g.svc.Spreadsheets.Get(g.cfg.SpreadsheetID).
		Fields("properties.title", "sheets.properties(sheetId,title,gridProperties(rowCount,columnCount))").
		Context(ctx).Do()
	if err != nil {
		return classify(OpConnect, "", err)
	}
	g.title = ""
	if ss.Properties != nil {
		g.title = ss.Properties.Title
	}
	g.tabs = map[string]tabInfo{}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			g.tabs[sh.Properties.Title] = infoOf(sh.Properties)
		}
	}
	g.lastProbe = g.now()
	return nil
}

// ensure connects lazily and re-probes a connection older than the probe
// interval. Callers hold g.mu.
func (g *GoogleGateway) ensure(ctx context.Context) error {
	if g.svc == nil {
		return g.connect(ctx)
	}
	if g.now().Sub(g.lastProbe) < g.cfg.ProbeInterval {
		return nil
	}
	if err := g.probe(ctx); err != nil {
		if IsRetryable(err) {
			g.svc = nil
			return g.connect(ctx)
		}
		return err
	}
	return nil
}

// locate checks the table's tab exists, refreshing the tab list once.
// Callers hold g.mu.
func (g *GoogleGateway) locate(ctx context.Context, op string, table schema.Table) (string, error) {
	if err := g.ensure(ctx); err != nil {
		return "", err
	}
	tab := g.cfg.Tabs.Tab(table)
	if _, ok := g.tabs[tab]; ok {
		return tab, nil
	}
	if err := g.probe(ctx); err != nil {
		return "", err
	}
	if _, ok := g.tabs[tab]; !ok {
		return "", newError(KindNotFound, op, tab, fmt.Errorf("spreadsheet has no tab named %q", tab))
	}
	return tab, nil
}

// Title implements Gateway.Title.
func (g *GoogleGateway) Title() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.title
}

// Tabs implements Gateway.Tabs.
func (g *GoogleGateway) Tabs(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensure(ctx); err != nil {
		return nil, err
	}
	if err := g.probe(ctx); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(g.tabs))
	for title := range g.tabs {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// VerifyTablesExist implements Gateway.VerifyTablesExist.
func (g *GoogleGateway) VerifyTablesExist(ctx context.Context) ([]schema.Table, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensure(ctx); err != nil {
		return nil, err
	}
	if err := g.probe(ctx); err != nil {
		return nil, err
	}
	var missing []schema.Table
	for _, t := range schema.Tables() {
		if _, ok := g.tabs[g.cfg.Tabs.Tab(t)]; !ok {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// CreateTab implements Gateway.CreateTab.
func (g *GoogleGateway) CreateTab(ctx context.Context, table schema.Table) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensure(ctx); err != nil {
		return err
	}
	tab := g.cfg.Tabs.Tab(table)
	if _, ok := g.tabs[tab]; ok {
		return nil
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: tab},
			},
		}},
	}
	resp, err := g.svc.Spreadsheets.BatchUpdate(g.cfg.SpreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return classify(OpCreateTab, tab, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		g.tabs[tab] = infoOf(resp.Replies[0].AddSheet.Properties)
	} else if err := g.probe(ctx); err != nil {
		return err
	}

	header := &sheetsapi.ValueRange{Values: toValues([][]string{table.ColumnNames()})}
	if _, err := g.svc.Spreadsheets.Values.Update(g.cfg.SpreadsheetID, a1(tab, "A1"), header).
		ValueInputOption(valueInputOption).Context(ctx).Do(); err != nil {
		return classify(OpCreateTab, tab, err)
	}
	g.logger.Printf("Created tab %q", tab)
	return nil
}

// ReadAllRows implements Gateway.ReadAllRows.
func (g *GoogleGateway) ReadAllRows(ctx context.Context, table schema.Table) ([]Row, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tab, err := g.locate(ctx, OpRead, table)
	if err != nil {
		return nil, err
	}
	grid, err := g.read(ctx, OpRead, tab, a1(tab, ""))
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid), nil
}

// ReadHeader implements Gateway.ReadHeader.
func (g *GoogleGateway) ReadHeader(ctx context.Context, table schema.Table) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tab, err := g.locate(ctx, OpReadHeader, table)
	if err != nil {
		return nil, err
	}
	grid, err := g.read(ctx, OpReadHeader, tab, a1(tab, "1:1"))
	if err != nil {
		return nil, err
	}
	return headerOf(grid), nil
}

// ReadColumn implements Gateway.ReadColumn. It reads the header row to
// find the column and then only that column.
func (g *GoogleGateway) ReadColumn(ctx context.Context, table schema.Table, column string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tab, err := g.locate(ctx, OpReadColumn, table)
	if err != nil {
		return nil, err
	}

	headerGrid, err := g.read(ctx, OpReadColumn, tab, a1(tab, "1:1"))
	if err != nil {
		return nil, err
	}
	if len(headerGrid) == 0 || gridEmpty(headerGrid) {
		return []string{}, nil
	}
	idx := -1
	for i, name := range headerGrid[0] {
		if name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, newError(KindMalformed, OpReadColumn, tab, fmt.Errorf("header has no %q column", column))
	}

	letter := ColumnLetter(idx)
	grid, err := g.read(ctx, OpReadColumn, tab, a1(tab, fmt.Sprintf("%s2:%s", letter, letter)))
	if err != nil {
		return nil, err
	}
	cells := make([]string, 0, len(grid))
	for _, row := range grid {
		if len(row) == 0 {
			cells = append(cells, "")
			continue
		}
		cells = append(cells, row[0])
	}
	return cells, nil
}

// Overwrite implements Gateway.Overwrite.
func (g *GoogleGateway) Overwrite(ctx context.Context, table schema.Table, header []string, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	tab, err := g.locate(ctx, OpOverwrite, table)
	if err != nil {
		return err
	}

	grid := append([][]string{header}, rows...)
	info := g.tabs[tab]
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{Requests: overwriteRequests(info, grid)}
	if _, err := g.svc.Spreadsheets.BatchUpdate(g.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify(OpOverwrite, tab, err)
	}
	info.rows = max(info.rows, int64(len(grid)))
	info.cols = max(info.cols, int64(gridWidth(grid)))
	g.tabs[tab] = info
	return nil
}

// overwriteRequests replaces the whole tab in one batch: the grid is grown
// to fit first, then every cell value is set. Cells outside grid are
// cleared because the update range is the whole sheet. Values are written
// as strings, which keeps them as text like RAW input does.
func overwriteRequests(info tabInfo, grid [][]string) []*sheetsapi.Request {
	var reqs []*sheetsapi.Request
	if extra := int64(len(grid)) - info.rows; extra > 0 {
		reqs = append(reqs, &sheetsapi.Request{AppendDimension: &sheetsapi.AppendDimensionRequest{
			SheetId: info.id, Dimension: "ROWS", Length: extra, ForceSendFields: []string{"SheetId"},
		}})
	}
	if extra := int64(gridWidth(grid)) - info.cols; extra > 0 {
		reqs = append(reqs, &sheetsapi.Request{AppendDimension: &sheetsapi.AppendDimensionRequest{
			SheetId: info.id, Dimension: "COLUMNS", Length: extra, ForceSendFields: []string{"SheetId"},
		}})
	}

	data := make([]*sheetsapi.RowData, len(grid))
	for i, row := range grid {
		cells := make([]*sheetsapi.CellData, len(row))
		for j, c := range row {
			v := c
			cells[j] = &sheetsapi.CellData{UserEnteredValue: &sheetsapi.ExtendedValue{StringValue: &v}}
		}
		data[i] = &sheetsapi.RowData{Values: cells}
	}
	reqs = append(reqs, &sheetsapi.Request{UpdateCells: &sheetsapi.UpdateCellsRequest{
		Range:  &sheetsapi.GridRange{SheetId: info.id, ForceSendFields: []string{"SheetId"}},
		Rows:   data,
		Fields: "userEnteredValue",
	}})
	return reqs
}

func infoOf(p *sheetsapi.SheetProperties) tabInfo {
	info := tabInfo{id: p.SheetId}
	if p.GridProperties != nil {
		info.rows = p.GridProperties.RowCount
		info.cols = p.GridProperties.ColumnCount
	}
	return info
}

func gridWidth(grid [][]string) int {
	n := 0
	for _, row := range grid {
		n = max(n, len(row))
	}
	return n
}

// AppendRows implements Gateway.AppendRows.
func (g *GoogleGateway) AppendRows(ctx context.Context, table schema.Table, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	tab, err := g.locate(ctx, OpAppend, table)
	if err != nil {
		return err
	}

	headerGrid, err := g.read(ctx, OpAppend, tab, a1(tab, "1:1"))
	if err != nil {
		return err
	}
	grid := rows
	if gridEmpty(headerGrid) {
		grid = append([][]string{table.ColumnNames()}, rows...)
	}
	if len(grid) == 0 {
		return nil
	}

	vr := &sheetsapi.ValueRange{MajorDimension: "ROWS", Values: toValues(grid)}
	if _, err := g.svc.Spreadsheets.Values.Append(g.cfg.SpreadsheetID, a1(tab, "A1"), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).Do(); err != nil {
		return classify(OpAppend, tab, err)
	}
	return nil
}

func (g *GoogleGateway) read(ctx context.Context, op, tab, rng string) ([][]string, error) {
	vr, err := g.svc.Spreadsheets.Values.Get(g.cfg.SpreadsheetID, rng).
		ValueRenderOption(valueRenderOption).
		MajorDimension("ROWS").
		Context(ctx).Do()
	if err != nil {
		return nil, classify(op, tab, err)
	}
	return fromValues(vr.Values), nil
}

// a1 builds an A1 range for a tab, quoting the title.
func a1(tab, cells string) string {
	quoted := "'" + strings.ReplaceAll(tab, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

// ColumnLetter converts a zero-based column index to its A1 letters.
func ColumnLetter(idx int) string {
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func toValues(grid [][]string) [][]interface{} {
	out := make([][]interface{}, len(grid))
	for i, row := range grid {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		out[i] = cells
	}
	return out
}

func fromValues(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, c := range row {
			if c != nil {
				cells[j] = fmt.Sprint(c)
			}
		}
		out[i] = cells
	}
	return out
}

// classify maps an API or transport error to a *GatewayError.
func classify(op, tab string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := KindOf(err); ok {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return newError(kindForStatus(apiErr), op, tab, err)
	}

	// Network failures, timeouts and cancelled contexts.
	return newError(KindTransient, op, tab, err)
}

func kindForStatus(apiErr *googleapi.Error) Kind {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
			return KindRateLimited
		}
	}
	switch {
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden:
		return KindAuth
	case apiErr.Code == http.StatusNotFound:
		return KindNotFound
	case apiErr.Code == http.StatusTooManyRequests:
		return KindRateLimited
	case apiErr.Code == http.StatusBadRequest:
		if strings.Contains(apiErr.Message, "Unable to parse range") {
			return KindNotFound
		}
		return KindMalformed
	case apiErr.Code >= 500:
		return KindTransient
	}
	return KindMalformed
}
