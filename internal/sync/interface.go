package sync

import (
	"context"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

// Syncer pushes local tables to the spreadsheet.
//
// It is the part of Engine used by change hooks and the watch daemon.
type Syncer interface {
	// SyncTable connects and syncs one table.
	//
	// The config table is always overwritten, whatever the mode. The
	// returned report is never nil; err is the report's error.
	//
	// Example:
	//   report, err := syncer.SyncTable(ctx, schema.ActivityTable, sync.Incremental)
	SyncTable(ctx context.Context, table schema.Table, mode Mode) (*Report, error)

	// SyncTables connects once and syncs the given tables in the fixed
	// table order, continuing past per-table failures.
	//
	// Returns a non-nil error only when the run was aborted because the
	// spreadsheet could not be reached or the credentials were rejected.
	//
	// Example:
	//   agg, err := syncer.SyncTables(ctx, sync.Overwrite, schema.ActivityTable, schema.FollowupTable)
	SyncTables(ctx context.Context, mode Mode, tables ...schema.Table) (*AggregateReport, error)
}

// Observer is notified after every table sync or restore.
type Observer interface {
	Observe(r *Report)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r *Report)

// Observe implements Observer.
func (f ObserverFunc) Observe(r *Report) { f(r) }

var _ Syncer = (*Engine)(nil)
