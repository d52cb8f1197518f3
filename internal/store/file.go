package store

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aisuara/marketing-tracker/internal/auth"
	"github.com/aisuara/marketing-tracker/internal/format"
	"github.com/aisuara/marketing-tracker/internal/migrate"
	"github.com/aisuara/marketing-tracker/internal/schema"
)

// Options configures a store backend.
type Options struct {
	// SeedAdmin creates an "admin" superadmin account when no users exist.
	SeedAdmin bool
	// AdminPassword is the password of the seeded admin.
	AdminPassword string
	// Formatter stamps created_at on seeded records. Defaults to WIB.
	Formatter *format.Formatter
	// Logger defaults to stderr with a "[store] " prefix.
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.AdminPassword == "" {
		o.AdminPassword = "admin123"
	}
	if o.Formatter == nil {
		o.Formatter = format.New(nil)
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
}

type activitiesDoc struct {
	Activities []*schema.Activity `yaml:"marketing_activities"`
}

type followupsDoc struct {
	Followups []*schema.Followup `yaml:"followups"`
}

type usersDoc struct {
	Users []*schema.User `yaml:"users"`
}

// FileStore keeps each table in its own YAML file under a data directory.
type FileStore struct {
	dir    string
	logger *log.Logger
	mu     sync.Mutex
}

// FileName returns the data file name of a table.
func FileName(table schema.Table) string {
	switch table {
	case schema.ActivityTable:
		return migrate.ActivitiesFile
	case schema.FollowupTable:
		return migrate.FollowupsFile
	case schema.UserTable:
		return migrate.UsersFile
	default:
		return migrate.ConfigFile
	}
}

// TableForFile maps a data file name back to its table.
func TableForFile(name string) (schema.Table, bool) {
	for _, t := range schema.Tables() {
		if FileName(t) == filepath.Base(name) {
			return t, true
		}
	}
	return 0, false
}

// OpenFileStore opens the YAML data directory, creating it and its files
// when missing and upgrading legacy layouts.
//
// Example:
//
//	st, err := store.OpenFileStore("data", store.Options{SeedAdmin: true})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func OpenFileStore(dir string, opts Options) (*FileStore, error) {
	opts.setDefaults()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	result, err := migrate.Legacy(migrate.Options{DataDir: dir})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate data directory: %w", err)
	}
	if result.KeysRenamed > 0 {
		opts.Logger.Printf("Migrated legacy 'activities' key to 'marketing_activities'")
	}
	if result.UserIDsAssigned > 0 {
		opts.Logger.Printf("Assigned ids to %d legacy users", result.UserIDsAssigned)
	}

	s := &FileStore{dir: dir, logger: opts.Logger}
	if err := s.seed(opts); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the data file path of a table.
func (s *FileStore) Path(table schema.Table) string {
	return filepath.Join(s.dir, FileName(table))
}

func (s *FileStore) seed(opts Options) error {
	if !s.exists(schema.ActivityTable) {
		if err := s.save(schema.ActivityTable, nil); err != nil {
			return err
		}
	}
	if !s.exists(schema.FollowupTable) {
		if err := s.save(schema.FollowupTable, nil); err != nil {
			return err
		}
	}
	if !s.exists(schema.UserTable) {
		var users []schema.Record
		if opts.SeedAdmin {
			hash, err := auth.HashPassword(opts.AdminPassword)
			if err != nil {
				return fmt.Errorf("failed to seed admin user: %w", err)
			}
			users = append(users, &schema.User{
				ID:           schema.NewID(schema.UserTable),
				Username:     "admin",
				PasswordHash: hash,
				Name:         "Admin Utama",
				Role:         schema.RoleSuperadmin,
				Email:        "admin@example.com",
				CreatedAt:    opts.Formatter.Now(),
			})
			s.logger.Printf("WARNING: seeded default admin account, change its password")
		}
		if err := s.save(schema.UserTable, users); err != nil {
			return err
		}
	}
	if !s.exists(schema.ConfigTable) {
		if err := s.writeConfig(DefaultConfig()); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) exists(table schema.Table) bool {
	_, err := os.Stat(s.Path(table))
	return err == nil
}

// GetAll implements Store.GetAll.
func (s *FileStore) GetAll(ctx context.Context, table schema.Table) ([]schema.Record, error) {
	if err := checkKeyed(table); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(table)
}

// GetByID implements Store.GetByID.
func (s *FileStore) GetByID(ctx context.Context, table schema.Table, id string) (schema.Record, error) {
	recs, err := s.GetAll(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.RecordID() == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s %q: %w", table, id, ErrNotFound)
}

// Upsert implements Store.Upsert.
func (s *FileStore) Upsert(ctx context.Context, rec schema.Record) error {
	table := rec.Table()
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid %s record: %w", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(table)
	if err != nil {
		return err
	}
	replaced := false
	for i, r := range recs {
		if r.RecordID() == rec.RecordID() {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return s.save(table, recs)
}

// Delete implements Store.Delete.
func (s *FileStore) Delete(ctx context.Context, table schema.Table, id string) error {
	if err := checkKeyed(table); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(table)
	if err != nil {
		return err
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.RecordID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(recs) {
		return fmt.Errorf("%s %q: %w", table, id, ErrNotFound)
	}
	if err := s.save(table, kept); err != nil {
		return err
	}

	if table != schema.ActivityTable {
		return nil
	}

	followups, err := s.load(schema.FollowupTable)
	if err != nil {
		return fmt.Errorf("failed to cascade delete followups: %w", err)
	}
	remaining := followups[:0]
	for _, r := range followups {
		if r.(*schema.Followup).ActivityID != id {
			remaining = append(remaining, r)
		}
	}
	if removed := len(followups) - len(remaining); removed > 0 {
		if err := s.save(schema.FollowupTable, remaining); err != nil {
			return fmt.Errorf("failed to cascade delete followups: %w", err)
		}
		s.logger.Printf("Deleted %d followups of activity %s", removed, id)
	}
	return nil
}

// ReplaceAll implements Store.ReplaceAll.
func (s *FileStore) ReplaceAll(ctx context.Context, table schema.Table, recs []schema.Record) error {
	if err := checkKeyed(table); err != nil {
		return err
	}
	if err := validateAll(recs, table); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(table, recs)
}

// GetConfig implements Store.GetConfig.
func (s *FileStore) GetConfig(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 - path is inside the configured data directory
	data, err := os.ReadFile(s.Path(schema.ConfigTable))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decodeConfig(data)
}

// SetConfig implements Store.SetConfig.
func (s *FileStore) SetConfig(ctx context.Context, cfg map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeConfig(cfg)
}

// Close implements Store.Close.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load(table schema.Table) ([]schema.Record, error) {
	path := s.Path(table)
	// #nosec G304 - path is inside the configured data directory
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []schema.Record{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var recs []schema.Record
	switch table {
	case schema.ActivityTable:
		var doc activitiesDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, a := range doc.Activities {
			if a != nil {
				recs = append(recs, a)
			}
		}
	case schema.FollowupTable:
		var doc followupsDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, f := range doc.Followups {
			if f != nil {
				recs = append(recs, f)
			}
		}
	case schema.UserTable:
		var doc usersDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, u := range doc.Users {
			if u != nil {
				recs = append(recs, u)
			}
		}
	}
	if recs == nil {
		recs = []schema.Record{}
	}
	return recs, nil
}

func (s *FileStore) save(table schema.Table, recs []schema.Record) error {
	var doc any
	switch table {
	case schema.ActivityTable:
		d := activitiesDoc{Activities: []*schema.Activity{}}
		for _, r := range recs {
			d.Activities = append(d.Activities, r.(*schema.Activity))
		}
		doc = d
	case schema.FollowupTable:
		d := followupsDoc{Followups: []*schema.Followup{}}
		for _, r := range recs {
			d.Followups = append(d.Followups, r.(*schema.Followup))
		}
		doc = d
	case schema.UserTable:
		d := usersDoc{Users: []*schema.User{}}
		for _, r := range recs {
			d.Users = append(d.Users, r.(*schema.User))
		}
		doc = d
	default:
		return ErrUnkeyedTable
	}

	data, err := encodeYAML(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", table, err)
	}
	return migrate.WriteFileAtomic(s.Path(table), data)
}

func (s *FileStore) writeConfig(cfg map[string]string) error {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range SortedKeys(cfg) {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: scalarTag(cfg[k]), Value: cfg[k]},
		)
	}
	data, err := encodeYAML(root)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return migrate.WriteFileAtomic(s.Path(schema.ConfigTable), data)
}

// decodeConfig accepts a flat mapping of scalars.
func decodeConfig(data []byte) (map[string]string, error) {
	cfg := map[string]string{}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigShape, err)
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, ErrConfigShape
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: key %q holds a %s", ErrConfigShape, k.Value, kindName(v.Kind))
		}
		if v.Tag == "!!null" {
			cfg[k.Value] = ""
			continue
		}
		cfg[k.Value] = v.Value
	}
	return cfg, nil
}

// scalarTag keeps booleans and integers typed in the YAML file.
func scalarTag(v string) string {
	if v == "true" || v == "false" {
		return "!!bool"
	}
	if n, err := strconv.Atoi(v); err == nil && strconv.Itoa(n) == v {
		return "!!int"
	}
	return "!!str"
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	}
	return "node"
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
