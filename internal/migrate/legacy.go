// Package migrate upgrades data directories written by older versions of
// the tracker.
//
// Only one structural change ever happened to the data files: the
// activities list used to live under the "activities" key and now lives
// under "marketing_activities". Legacy moves it. Old user lists also lack
// ids, which are backfilled so users can be synced like any other table.
package migrate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aisuara/marketing-tracker/internal/schema"
)

// Data file names inside the data directory.
const (
	ActivitiesFile = "marketing_activities.yaml"
	FollowupsFile  = "followups.yaml"
	UsersFile      = "users.yaml"
	ConfigFile     = "config.yaml"
)

const (
	legacyActivitiesKey = "activities"
	activitiesKey       = "marketing_activities"
)

// Options contains configuration for the migration
type Options struct {
	DataDir string // Directory holding the YAML data files
	DryRun  bool   // Report what would change without writing
	Backup  bool   // Keep a timestamped copy of every rewritten file
}

// Result contains statistics about the migration
type Result struct {
	KeysRenamed     int
	UserIDsAssigned int
	FilesWritten    int
	Backups         []string
}

// Changed reports whether the migration touched anything.
func (r *Result) Changed() bool {
	return r.KeysRenamed > 0 || r.UserIDsAssigned > 0
}

// Legacy applies the legacy upgrades to the data directory. Missing files
// are not an error. Running it twice is a no-op.
func Legacy(opts Options) (*Result, error) {
	result := &Result{}

	activities := filepath.Join(opts.DataDir, ActivitiesFile)
	renamed, err := rewrite(activities, opts, result, renameActivitiesKey)
	if err != nil {
		return nil, err
	}
	result.KeysRenamed = renamed

	users := filepath.Join(opts.DataDir, UsersFile)
	assigned, err := rewrite(users, opts, result, backfillUserIDs)
	if err != nil {
		return nil, err
	}
	result.UserIDsAssigned = assigned

	return result, nil
}

// rewrite loads a YAML document, applies fn and writes it back if fn
// reports changes.
func rewrite(path string, opts Options, result *Result, fn func(root *yaml.Node) int) (int, error) {
	// #nosec G304 - path is inside the configured data directory
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return 0, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return 0, nil
	}

	changed := fn(root)
	if changed == 0 || opts.DryRun {
		return changed, nil
	}

	if opts.Backup {
		backupPath := path + ".backup." + time.Now().Format("20060102-150405")
		if err := os.WriteFile(backupPath, data, 0600); err != nil {
			return 0, fmt.Errorf("failed to create backup: %w", err)
		}
		result.Backups = append(result.Backups, backupPath)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
		return 0, err
	}
	result.FilesWritten++
	return changed, nil
}

func renameActivitiesKey(root *yaml.Node) int {
	if mappingValue(root, activitiesKey) != nil {
		return 0
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == legacyActivitiesKey {
			root.Content[i].Value = activitiesKey
			return 1
		}
	}
	return 0
}

func backfillUserIDs(root *yaml.Node) int {
	users := mappingValue(root, "users")
	if users == nil || users.Kind != yaml.SequenceNode {
		return 0
	}
	assigned := 0
	for _, u := range users.Content {
		if u.Kind != yaml.MappingNode {
			continue
		}
		if id := mappingValue(u, schema.ColID); id != nil && id.Value != "" {
			continue
		}
		setMappingValue(u, schema.ColID, schema.NewID(schema.UserTable))
		assigned++
	}
	return assigned
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// setMappingValue sets key to a string value, adding the key first in the
// mapping when it is missing.
func setMappingValue(m *yaml.Node, key, value string) {
	if v := mappingValue(m, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = "!!str"
		v.Value = value
		return
	}
	k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	v := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	m.Content = append([]*yaml.Node{k, v}, m.Content...)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
