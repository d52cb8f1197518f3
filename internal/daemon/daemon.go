// Package daemon keeps the spreadsheet in step with the local data files
// while the tracker is left running.
//
// The daemon:
//  1. Syncs every table once at startup
//  2. Watches the data directory for changes to table files
//  3. Debounces bursts of writes and syncs only the tables that changed
//  4. Periodically re-syncs every table to pick up anything it missed
//  5. Handles graceful shutdown
//
// All syncs run on a single goroutine, so the engine still sees one caller
// at a time.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	gosync "sync"
	"time"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/sheets"
	"github.com/aisuara/marketing-tracker/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long a table must stay quiet before it is
	// synced. This batches rapid writes together.
	DebounceInterval time.Duration

	// ReconcileInterval is how often every table is re-synced. Zero
	// disables periodic syncs.
	ReconcileInterval time.Duration

	// Mode is the sync mode used for file changes and periodic syncs.
	// Incremental only appends new ids; Overwrite also pushes edits and
	// deletions.
	Mode sync.Mode

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval:  500 * time.Millisecond,
		ReconcileInterval: 5 * time.Minute,
		Mode:              sync.Incremental,
		Logger:            log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon watches the data directory and syncs changed tables.
type Daemon struct {
	syncer  sync.Syncer
	dataDir string
	config  *Config

	watcher       *FileWatcher
	changeQueue   map[schema.Table]time.Time
	changeQueueMu gosync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	stopOnce gosync.Once
}

// New creates a daemon with the default configuration.
func New(syncer sync.Syncer, dataDir string) (*Daemon, error) {
	return NewWithConfig(syncer, dataDir, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration. Zero fields
// of config fall back to the defaults.
func NewWithConfig(syncer sync.Syncer, dataDir string, config *Config) (*Daemon, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer cannot be nil")
	}
	if dataDir == "" {
		return nil, fmt.Errorf("dataDir cannot be empty")
	}
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = defaults.DebounceInterval
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	watcher, err := NewFileWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		syncer:      syncer,
		dataDir:     dataDir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[schema.Table]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start runs the daemon until ctx is cancelled or Stop is called.
//
// A failed startup sync is logged and the daemon keeps running, unless the
// credentials are missing or rejected, in which case Start returns the
// error without watching anything.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := d.SyncNow(schema.Tables()...); err != nil {
		if sheets.IsFatal(err) {
			d.Stop()
			return fmt.Errorf("initial sync failed: %w", err)
		}
		d.config.Logger.Printf("WARNING: Initial sync failed: %v", err)
	}

	if err := d.watcher.Start(d.dataDir); err != nil {
		d.Stop()
		return err
	}
	d.config.Logger.Printf("Watching: %s", d.dataDir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. It is safe to call more than once.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.config.Logger.Println("Stopping daemon")
		d.cancel()
		if err := d.watcher.Stop(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
		d.wg.Wait()
		d.config.Logger.Println("Daemon stopped")
	})
	return nil
}

// SyncNow syncs the given tables with the configured mode and returns the
// run's abort error, if any. Per-table failures are logged, not returned.
func (d *Daemon) SyncNow(tables ...schema.Table) error {
	agg, err := d.syncer.SyncTables(d.ctx, d.config.Mode, tables...)
	if agg != nil {
		for _, r := range agg.Reports {
			d.config.Logger.Print(r.Summary())
		}
	}
	if err != nil {
		return err
	}
	if failed := agg.Failed(); len(failed) > 0 {
		d.config.Logger.Printf("WARNING: %d of %d tables failed to sync", len(failed), len(agg.Reports))
	}
	return nil
}

// Pending returns the tables waiting for their debounce window to pass.
func (d *Daemon) Pending() []schema.Table {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	var out []schema.Table
	for _, t := range schema.Tables() {
		if _, ok := d.changeQueue[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			d.config.Logger.Printf("File event: %s %s", event.Op, event.Path)
			d.queueChange(event.Table)

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange marks a table dirty, restarting its debounce window.
func (d *Daemon) queueChange(table schema.Table) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[table] = time.Now()
}

// processChangeQueue is the only goroutine that calls the syncer after
// startup.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	var reconcile <-chan time.Time
	if d.config.ReconcileInterval > 0 {
		rt := time.NewTicker(d.config.ReconcileInterval)
		defer rt.Stop()
		reconcile = rt.C
	}

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()

		case <-reconcile:
			d.config.Logger.Println("Periodic sync of all tables")
			d.logSyncError(d.SyncNow(schema.Tables()...))
		}
	}
}

// processPendingChanges syncs the tables that have been quiet for a full
// debounce window.
func (d *Daemon) processPendingChanges() {
	now := time.Now()

	d.changeQueueMu.Lock()
	var ready []schema.Table
	for table, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, table)
		delete(d.changeQueue, table)
	}
	d.changeQueueMu.Unlock()

	if len(ready) == 0 {
		return
	}
	d.logSyncError(d.SyncNow(ready...))
}

func (d *Daemon) logSyncError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	d.config.Logger.Printf("Error syncing: %v", err)
}
