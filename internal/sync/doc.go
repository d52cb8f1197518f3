// Package sync mirrors the local record store to the spreadsheet and
// restores it back.
//
// Overview
//
// The Engine owns a store.Store and a sheets.Gateway. It pushes each table
// to its tab in one of two modes and can pull a tab back into the store:
//
//	Record Store                       Spreadsheet
//	  activities ──┐                ┌── Activities
//	  followups  ──┤    Engine      ├── Followups
//	  users      ──┤ ─────────────▶ ├── Users
//	  config     ──┘  (format +     └── Config
//	                   schema)
//	              ◀───────────────
//	                   Restore
//
// Modes
//
// Incremental reads only the remote id column, computes the set of local
// records whose id is not in the sheet yet and appends those rows. When the
// tab is empty the header row is written first, so the first incremental
// sync of a table bootstraps it. Edits to records that are already in the
// sheet are NOT pushed by incremental sync; only Overwrite (which clears the
// tab and writes header plus every local record) brings the sheet up to
// date with edits and deletions.
//
// The config table has no id column and is always synced with Overwrite,
// whatever mode the caller asks for.
//
// Usage
//
//	engine := sync.New(st, gw, sync.Options{})
//
//	// Push new records of one table
//	report, err := engine.SyncTable(ctx, schema.ActivityTable, sync.Incremental)
//
//	// Push everything, replacing the sheet content
//	agg, err := engine.SyncAll(ctx, sync.Overwrite)
//	fmt.Println(agg.Message())
//
//	// Replace local followups with the sheet content
//	report, err = engine.RestoreTable(ctx, schema.FollowupTable)
//
// Error Handling
//
// The engine is resilient to individual failures:
//
//   - A value that cannot be formatted is written verbatim and recorded as
//     an anomaly in the report
//   - A local record that fails validation is skipped and reported as a
//     *MalformedDataError
//   - A failing table (missing tab, transient API error) is reported and
//     SyncAll/RestoreAll continue with the next table
//   - A connection failure (*ConnectionError) or rejected credentials abort
//     the whole run
//
// Nothing is retried automatically. The operator re-runs the sync.
//
// Concurrency
//
// An Engine calls the gateway sequentially, one table at a time, in the
// fixed order activities, followups, users, config. Callers that run syncs
// in the background (the watch daemon) serialise them through a single
// goroutine.
package sync
