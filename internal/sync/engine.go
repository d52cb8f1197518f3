package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"github.com/aisuara/marketing-tracker/internal/format"
	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/sheets"
	"github.com/aisuara/marketing-tracker/internal/store"
)

// LastSyncKey is the config key holding the time of the last successful
// SyncAll.
const LastSyncKey = "last_manual_sync"

// Options configures an Engine. The zero value is usable.
type Options struct {
	// Formatter converts values to and from cell text. Nil means WIB.
	Formatter *format.Formatter

	// Logger defaults to stderr with a "[sync] " prefix.
	Logger *log.Logger

	// Observer, if set, sees every table report.
	Observer Observer

	// CreateMissingTabs creates a table's tab before syncing it instead
	// of failing with a not-found error.
	CreateMissingTabs bool
}

// Engine syncs a store with a spreadsheet.
type Engine struct {
	store      store.Store
	gw         sheets.Gateway
	fmt        *format.Formatter
	logger     *log.Logger
	observer   Observer
	createTabs bool
}

// New creates an Engine. The gateway is connected lazily by each run.
//
// Example:
//
//	gw := sheets.NewMemoryGateway(nil)
//	engine := sync.New(st, gw, sync.Options{})
func New(st store.Store, gw sheets.Gateway, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	f := opts.Formatter
	if f == nil {
		f = format.New(nil)
	}
	return &Engine{
		store:      st,
		gw:         gw,
		fmt:        f,
		logger:     logger,
		observer:   opts.Observer,
		createTabs: opts.CreateMissingTabs,
	}
}

// Gateway returns the engine's gateway.
func (e *Engine) Gateway() sheets.Gateway {
	return e.gw
}

// SyncTable implements Syncer.SyncTable.
func (e *Engine) SyncTable(ctx context.Context, table schema.Table, mode Mode) (*Report, error) {
	if err := e.connect(ctx); err != nil {
		r := &Report{Op: OpSync, Table: table, Mode: effectiveMode(table, mode), Err: err}
		e.finish(r, time.Now())
		return r, err
	}
	r := e.syncTable(ctx, table, mode)
	return r, r.Err
}

// SyncTables implements Syncer.SyncTables.
func (e *Engine) SyncTables(ctx context.Context, mode Mode, tables ...schema.Table) (*AggregateReport, error) {
	agg := &AggregateReport{Op: OpSync, Mode: mode}
	if err := e.connect(ctx); err != nil {
		agg.Err = err
		return agg, err
	}
	for _, t := range ordered(tables) {
		r := e.syncTable(ctx, t, mode)
		agg.Reports = append(agg.Reports, r)
		if sheets.IsFatal(r.Err) {
			agg.Err = &ConnectionError{Err: r.Err}
			e.logger.Printf("WARNING: Aborting sync after %s: %v", t, r.Err)
			return agg, agg.Err
		}
	}
	return agg, nil
}

// SyncAll syncs every table and, when all of them succeed, stores the
// current time under LastSyncKey. The bookkeeping write is not synced
// itself.
func (e *Engine) SyncAll(ctx context.Context, mode Mode) (*AggregateReport, error) {
	e.logger.Printf("Starting %s sync of all tables", mode)
	agg, err := e.SyncTables(ctx, mode, schema.Tables()...)
	if err != nil {
		return agg, err
	}
	if agg.Success() {
		if err := e.markSynced(ctx); err != nil {
			e.logger.Printf("WARNING: Failed to record last sync time: %v", err)
		}
	}
	e.logger.Printf("Sync finished: %d tables, %d failed", len(agg.Reports), len(agg.Failed()))
	return agg, nil
}

// LastManualSync returns the time of the last successful SyncAll, or ""
// if there was none.
func (e *Engine) LastManualSync(ctx context.Context) (string, error) {
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return cfg[LastSyncKey], nil
}

func (e *Engine) markSynced(ctx context.Context) error {
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return err
	}
	cfg[LastSyncKey] = e.fmt.Now()
	return e.store.SetConfig(ctx, cfg)
}

// RestoreTable replaces the local content of a table with its tab. It is
// destructive: local records that are not in the sheet are lost.
func (e *Engine) RestoreTable(ctx context.Context, table schema.Table) (*Report, error) {
	if err := e.connect(ctx); err != nil {
		r := &Report{Op: OpRestore, Table: table, Err: err}
		e.finish(r, time.Now())
		return r, err
	}
	r := e.restoreTable(ctx, table)
	return r, r.Err
}

// RestoreAll restores every table, continuing past per-table failures.
func (e *Engine) RestoreAll(ctx context.Context) (*AggregateReport, error) {
	agg := &AggregateReport{Op: OpRestore}
	if err := e.connect(ctx); err != nil {
		agg.Err = err
		return agg, err
	}
	for _, t := range schema.Tables() {
		r := e.restoreTable(ctx, t)
		agg.Reports = append(agg.Reports, r)
		if sheets.IsFatal(r.Err) {
			agg.Err = &ConnectionError{Err: r.Err}
			return agg, agg.Err
		}
	}
	return agg, nil
}

func (e *Engine) connect(ctx context.Context) error {
	if err := e.gw.Connect(ctx); err != nil {
		e.logger.Printf("WARNING: Cannot connect to spreadsheet: %v", err)
		return &ConnectionError{Err: err}
	}
	return nil
}

// effectiveMode forces Overwrite for tables without an id column.
func effectiveMode(table schema.Table, mode Mode) Mode {
	if !table.Keyed() {
		return Overwrite
	}
	return mode
}

// ordered returns the distinct tables in the fixed sync order.
func ordered(tables []schema.Table) []schema.Table {
	want := make(map[schema.Table]bool, len(tables))
	for _, t := range tables {
		want[t] = true
	}
	var out []schema.Table
	for _, t := range schema.Tables() {
		if want[t] {
			out = append(out, t)
		}
	}
	return out
}

func (e *Engine) syncTable(ctx context.Context, table schema.Table, mode Mode) *Report {
	start := time.Now()
	r := &Report{Op: OpSync, Table: table, Mode: effectiveMode(table, mode)}
	defer e.finish(r, start)

	if err := e.locate(ctx, table); err != nil {
		r.Err = err
		return r
	}

	if !table.Keyed() {
		r.Err = e.pushConfig(ctx, r)
		return r
	}

	recs, err := e.store.GetAll(ctx, table)
	if err != nil {
		r.Err = fmt.Errorf("failed to read local %s: %w", table, err)
		return r
	}
	recs = e.valid(table, recs, r)

	if r.Mode == Overwrite {
		return e.overwrite(ctx, table, recs, r)
	}

	// Appended rows are laid out in registry order, so they only line up
	// under a header in that same order.
	header, err := e.gw.ReadHeader(ctx, table)
	if err != nil {
		r.Err = err
		return r
	}
	if len(header) > 0 && !slices.Equal(header, table.ColumnNames()) {
		e.logger.Printf("WARNING: %s tab header %v differs from the table layout, rewriting the tab", table, header)
		r.HeaderDrift = header
		r.Mode = Overwrite
		return e.overwrite(ctx, table, recs, r)
	}

	remote, err := e.gw.ReadColumn(ctx, table, schema.ColID)
	if err != nil {
		r.Err = err
		return r
	}
	existing := make(map[string]bool, len(remote))
	for _, id := range remote {
		if id != "" {
			existing[id] = true
		}
	}
	r.Remote = len(existing)

	var delta []schema.Record
	for _, rec := range recs {
		if !existing[rec.RecordID()] {
			delta = append(delta, rec)
		}
	}
	if len(delta) == 0 {
		return r
	}

	rows := e.formatRows(delta, r)
	if err := e.gw.AppendRows(ctx, table, rows); err != nil {
		r.Err = err
		return r
	}
	r.Rows = len(rows)
	return r
}

// overwrite replaces the tab with the header and every record.
func (e *Engine) overwrite(ctx context.Context, table schema.Table, recs []schema.Record, r *Report) *Report {
	rows := e.formatRows(recs, r)
	if err := e.gw.Overwrite(ctx, table, table.ColumnNames(), rows); err != nil {
		r.Err = err
		return r
	}
	r.Rows = len(rows)
	return r
}

// locate creates the table's tab when it is missing and tab creation is
// enabled. Otherwise a missing tab surfaces from the first gateway call.
func (e *Engine) locate(ctx context.Context, table schema.Table) error {
	if !e.createTabs {
		return nil
	}
	missing, err := e.gw.VerifyTablesExist(ctx)
	if err != nil {
		return err
	}
	for _, t := range missing {
		if t == table {
			e.logger.Printf("Creating missing tab for %s", table)
			return e.gw.CreateTab(ctx, table)
		}
	}
	return nil
}

func (e *Engine) pushConfig(ctx context.Context, r *Report) error {
	cfg, err := e.store.GetConfig(ctx)
	if err != nil {
		return &ConfigError{Err: err}
	}
	keys := store.SortedKeys(cfg)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, cfg[k]})
	}
	header := schema.ConfigTable.ColumnNames()
	if err := e.gw.Overwrite(ctx, schema.ConfigTable, header, rows); err != nil {
		return err
	}
	r.Rows = len(rows)
	return nil
}

// valid drops records that fail validation or repeat an id.
func (e *Engine) valid(table schema.Table, recs []schema.Record, r *Report) []schema.Record {
	seen := make(map[string]bool, len(recs))
	out := make([]schema.Record, 0, len(recs))
	for _, rec := range recs {
		err := rec.Validate()
		if err == nil && seen[rec.RecordID()] {
			err = errDuplicateID
		}
		if err != nil {
			merr := &MalformedDataError{Table: table, RecordID: rec.RecordID(), Err: err}
			r.Skipped = append(r.Skipped, merr)
			e.logger.Printf("WARNING: Skipping %v", merr)
			continue
		}
		seen[rec.RecordID()] = true
		out = append(out, rec)
	}
	return out
}

// formatRows renders records in column order. Values that fail to format
// are kept as they are and recorded as anomalies.
func (e *Engine) formatRows(recs []schema.Record, r *Report) [][]string {
	cols := r.Table.Columns()
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		vals := rec.Values()
		row := make([]string, len(cols))
		for i, col := range cols {
			cell, err := e.fmt.FormatCell(col, vals[col.Name])
			if err != nil {
				r.Anomalies = append(r.Anomalies, Anomaly{
					RecordID: rec.RecordID(), Column: col.Name, Value: vals[col.Name], Err: err,
				})
				e.logger.Printf("WARNING: %s %s.%s kept verbatim: %v", r.Table, rec.RecordID(), col.Name, err)
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}
	return rows
}

func (e *Engine) restoreTable(ctx context.Context, table schema.Table) *Report {
	start := time.Now()
	r := &Report{Op: OpRestore, Table: table}
	defer e.finish(r, start)

	rows, err := e.gw.ReadAllRows(ctx, table)
	if err != nil {
		r.Err = err
		return r
	}

	if !table.Keyed() {
		cfg := make(map[string]string, len(rows))
		for _, row := range rows {
			if k := row[schema.ColConfigKey]; k != "" {
				cfg[k] = row[schema.ColConfigValue]
			}
		}
		if err := e.store.SetConfig(ctx, cfg); err != nil {
			r.Err = fmt.Errorf("failed to write config: %w", err)
			return r
		}
		r.Rows = len(cfg)
		return r
	}

	cols := table.Columns()
	seen := make(map[string]bool, len(rows))
	recs := make([]schema.Record, 0, len(rows))
	for i, row := range rows {
		vals := make(map[string]string, len(cols))
		for _, col := range cols {
			v, err := e.fmt.ParseCell(col, row[col.Name])
			if err != nil {
				r.Anomalies = append(r.Anomalies, Anomaly{
					RecordID: row[schema.ColID], Column: col.Name, Value: row[col.Name], Err: err,
				})
			}
			vals[col.Name] = v
		}
		if table == schema.UserTable && vals[schema.ColID] == "" {
			vals[schema.ColID] = schema.NewID(table)
			e.logger.Printf("Assigned id %s to user %q", vals[schema.ColID], vals["username"])
		}

		rec, err := schema.FromValues(table, vals)
		if err == nil {
			err = rec.Validate()
		}
		if err == nil && seen[rec.RecordID()] {
			err = errDuplicateID
		}
		if err != nil {
			// Row 1 is the header.
			merr := &MalformedDataError{Table: table, RecordID: vals[schema.ColID], Row: i + 2, Err: err}
			r.Skipped = append(r.Skipped, merr)
			e.logger.Printf("WARNING: Skipping %v", merr)
			continue
		}
		seen[rec.RecordID()] = true
		recs = append(recs, rec)
	}

	if err := e.store.ReplaceAll(ctx, table, recs); err != nil {
		r.Err = fmt.Errorf("failed to replace local %s: %w", table, err)
		return r
	}
	r.Rows = len(recs)
	return r
}

// finish stamps the duration, logs, records metrics and notifies the
// observer.
func (e *Engine) finish(r *Report, start time.Time) {
	r.Duration = time.Since(start)
	if r.Err != nil {
		var gerr *sheets.GatewayError
		if errors.As(r.Err, &gerr) && gerr.Kind == sheets.KindNotFound {
			e.logger.Printf("WARNING: %s skipped, tab not found", r.Table)
		} else {
			e.logger.Printf("WARNING: %s %s failed: %v", r.Op, r.Table, r.Err)
		}
	} else {
		e.logger.Printf("%s", r.Summary())
	}
	record(r)
	if e.observer != nil {
		e.observer.Observe(r)
	}
}
