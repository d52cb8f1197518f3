// Package store holds the authoritative local copy of the tracker's data.
//
// Two backends implement Store: FileStore keeps one YAML file per table in
// the data directory (the layout the tracker has always used) and
// SQLiteStore keeps everything in a single SQLite database. Both enforce
// the same rules: records are validated on write, ids are unique per table
// and deleting an activity deletes its followups.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConfigShape is returned when the stored config is not a flat
	// key/value mapping.
	ErrConfigShape = errors.New("config is not a key/value mapping")

	// ErrUnkeyedTable is returned when a record operation targets config.
	ErrUnkeyedTable = errors.New("config table has no records")
)

// Store is the local record store.
type Store interface {
	// GetAll returns every record of a keyed table in insertion order.
	GetAll(ctx context.Context, table schema.Table) ([]schema.Record, error)

	// GetByID returns one record or ErrNotFound.
	GetByID(ctx context.Context, table schema.Table, id string) (schema.Record, error)

	// Upsert validates the record and inserts it, or replaces the record
	// with the same id in place.
	Upsert(ctx context.Context, rec schema.Record) error

	// Delete removes a record. Deleting an activity also removes its
	// followups. Returns ErrNotFound if the id does not exist.
	Delete(ctx context.Context, table schema.Table, id string) error

	// ReplaceAll swaps the whole content of a keyed table. Used by restore.
	ReplaceAll(ctx context.Context, table schema.Table, recs []schema.Record) error

	// GetConfig returns the config mapping.
	GetConfig(ctx context.Context) (map[string]string, error)

	// SetConfig replaces the config mapping.
	SetConfig(ctx context.Context, cfg map[string]string) error

	// Close releases the backend.
	Close() error
}

// DefaultConfig is seeded when no config exists yet.
func DefaultConfig() map[string]string {
	return map[string]string{
		"app_name":             "AI Suara Marketing Tracker",
		"company_name":         "AI Suara",
		"version":              "1.0.3",
		"theme":                "light",
		"date_format":          "%Y-%m-%d %H:%M:%S",
		"enable_email":         "false",
		"enable_reminder":      "true",
		"reminder_days_before": "1",
	}
}

// SortedKeys returns the config keys in lexical order.
func SortedKeys(cfg map[string]string) []string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FollowupsOf returns the followups of an activity.
func FollowupsOf(ctx context.Context, s Store, activityID string) ([]*schema.Followup, error) {
	recs, err := s.GetAll(ctx, schema.FollowupTable)
	if err != nil {
		return nil, err
	}
	var out []*schema.Followup
	for _, r := range recs {
		if fu, ok := r.(*schema.Followup); ok && fu.ActivityID == activityID {
			out = append(out, fu)
		}
	}
	return out, nil
}

// FindUser looks a user up by username.
func FindUser(ctx context.Context, s Store, username string) (*schema.User, error) {
	recs, err := s.GetAll(ctx, schema.UserTable)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if u, ok := r.(*schema.User); ok && u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func checkKeyed(table schema.Table) error {
	if !table.Keyed() {
		return ErrUnkeyedTable
	}
	return nil
}

func validateAll(recs []schema.Record, table schema.Table) error {
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if r.Table() != table {
			return fmt.Errorf("record %s belongs to %s, not %s", r.RecordID(), r.Table(), table)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid %s record %q: %w", table, r.RecordID(), err)
		}
		if seen[r.RecordID()] {
			return fmt.Errorf("duplicate %s id %q", table, r.RecordID())
		}
		seen[r.RecordID()] = true
	}
	return nil
}

// Backend names accepted by Open.
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Open opens the configured backend. sqlitePath defaults to
// <dataDir>/tracker.db.
func Open(ctx context.Context, backend, dataDir, sqlitePath string, opts Options) (Store, error) {
	switch backend {
	case "", BackendYAML:
		return OpenFileStore(dataDir, opts)
	case BackendSQLite:
		if sqlitePath == "" {
			sqlitePath = filepath.Join(dataDir, "tracker.db")
		}
		return OpenSQLiteStore(ctx, sqlitePath, opts)
	}
	return nil, fmt.Errorf("unknown store backend %q (want %s or %s)", backend, BackendYAML, BackendSQLite)
}
