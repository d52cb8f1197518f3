package sync

import (
	"errors"
	"fmt"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

// ConnectionError means the spreadsheet could not be opened. It aborts the
// whole run since no table can be synced without a connection.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to spreadsheet: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// MalformedDataError reports a record that was skipped because it does not
// meet the table's rules.
type MalformedDataError struct {
	Table    schema.Table
	RecordID string
	Row      int // 1-based sheet row for restore, 0 for sync
	Err      error
}

func (e *MalformedDataError) Error() string {
	switch {
	case e.Row > 0:
		return fmt.Sprintf("%s row %d: %v", e.Table, e.Row, e.Err)
	case e.RecordID != "":
		return fmt.Sprintf("%s record %q: %v", e.Table, e.RecordID, e.Err)
	default:
		return fmt.Sprintf("%s record: %v", e.Table, e.Err)
	}
}

func (e *MalformedDataError) Unwrap() error {
	return e.Err
}

// ConfigError means the local config cannot be read as a key/value map. It
// aborts the config table only.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConnectionError returns true if err aborted a whole run.
func IsConnectionError(err error) bool {
	var cerr *ConnectionError
	return errors.As(err, &cerr)
}

// errDuplicateID is wrapped by MalformedDataError for repeated ids.
var errDuplicateID = errors.New("duplicate id")
