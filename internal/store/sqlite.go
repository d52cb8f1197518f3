package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/aisuara/marketing-tracker/internal/auth"
	"github.com/aisuara/marketing-tracker/internal/schema"
)

// SQLiteStore keeps all tables in one embedded SQLite database.
//
// Every registry column is stored as TEXT. Rows are returned in insertion
// order (rowid), which upserts preserve.
type SQLiteStore struct {
	conn   *sql.DB
	path   string
	logger *log.Logger
}

// OpenSQLiteStore opens (or creates) the database at path with WAL enabled
// and initializes the schema.
//
// The caller MUST call Close() when done.
func OpenSQLiteStore(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	opts.setDefaults()

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{conn: conn, path: path, logger: opts.Logger}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := s.initSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.seed(ctx, opts); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var ddl strings.Builder
	for _, t := range schema.Tables() {
		if !t.Keyed() {
			continue
		}
		fmt.Fprintf(&ddl, "CREATE TABLE IF NOT EXISTS %s (\n", t)
		for i, name := range t.ColumnNames() {
			if i > 0 {
				ddl.WriteString(",\n")
			}
			if name == schema.ColID {
				fmt.Fprintf(&ddl, "\t%q TEXT PRIMARY KEY", name)
				continue
			}
			fmt.Fprintf(&ddl, "\t%q TEXT NOT NULL DEFAULT ''", name)
		}
		ddl.WriteString("\n);\n")
	}
	ddl.WriteString(`CREATE TABLE IF NOT EXISTS config (
	"key" TEXT PRIMARY KEY,
	"value" TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_followups_activity ON followups(activity_id);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`)

	if _, err := s.conn.ExecContext(ctx, ddl.String()); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) seed(ctx context.Context, opts Options) error {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM config`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count config: %w", err)
	}
	if n == 0 {
		if err := s.SetConfig(ctx, DefaultConfig()); err != nil {
			return err
		}
	}

	if !opts.SeedAdmin {
		return nil
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	s.logger.Printf("WARNING: seeded default admin account, change its password")
	return s.Upsert(ctx, &schema.User{
		ID:           schema.NewID(schema.UserTable),
		Username:     "admin",
		PasswordHash: hash,
		Name:         "Admin Utama",
		Role:         schema.RoleSuperadmin,
		Email:        "admin@example.com",
		CreatedAt:    opts.Formatter.Now(),
	})
}

func quotedColumns(t schema.Table) string {
	names := t.ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// GetAll implements Store.GetAll.
func (s *SQLiteStore) GetAll(ctx context.Context, table schema.Table) ([]schema.Record, error) {
	if err := checkKeyed(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY rowid`, quotedColumns(table), table)
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()
	return scanRecords(rows, table)
}

// GetByID implements Store.GetByID.
func (s *SQLiteStore) GetByID(ctx context.Context, table schema.Table, id string) (schema.Record, error) {
	if err := checkKeyed(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, quotedColumns(table), table)
	rows, err := s.conn.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s %s: %w", table, id, err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows, table)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s %q: %w", table, id, ErrNotFound)
	}
	return recs[0], nil
}

// Upsert implements Store.Upsert.
func (s *SQLiteStore) Upsert(ctx context.Context, rec schema.Record) error {
	table := rec.Table()
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid %s record: %w", table, err)
	}
	if _, err := s.conn.ExecContext(ctx, upsertQuery(table), rowArgs(rec)...); err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", table, rec.RecordID(), err)
	}
	return nil
}

func upsertQuery(table schema.Table) string {
	names := table.ColumnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	var sets []string
	for _, n := range names {
		if n == schema.ColID {
			continue
		}
		sets = append(sets, fmt.Sprintf("%q = excluded.%q", n, n))
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
	ON CONFLICT(id) DO UPDATE SET %s`, table, quotedColumns(table), placeholders, strings.Join(sets, ", "))
}

func rowArgs(rec schema.Record) []any {
	row := schema.Row(rec)
	args := make([]any, len(row))
	for i, v := range row {
		args[i] = v
	}
	return args
}

// Delete implements Store.Delete. Followups of a deleted activity are
// removed in the same transaction.
func (s *SQLiteStore) Delete(ctx context.Context, table schema.Table, id string) error {
	if err := checkKeyed(table); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", table, id, ErrNotFound)
	}

	if table == schema.ActivityTable {
		res, err := tx.ExecContext(ctx, `DELETE FROM followups WHERE activity_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to cascade delete followups: %w", err)
		}
		if removed, _ := res.RowsAffected(); removed > 0 {
			s.logger.Printf("Deleted %d followups of activity %s", removed, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// ReplaceAll implements Store.ReplaceAll.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, table schema.Table, recs []schema.Record) error {
	if err := checkKeyed(table); err != nil {
		return err
	}
	if err := validateAll(recs, table); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	query := upsertQuery(table)
	for _, r := range recs {
		if _, err := tx.ExecContext(ctx, query, rowArgs(r)...); err != nil {
			return fmt.Errorf("failed to insert %s %s: %w", table, r.RecordID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	return nil
}

// GetConfig implements Store.GetConfig.
func (s *SQLiteStore) GetConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT "key", "value" FROM config`)
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}
	defer rows.Close()

	cfg := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		cfg[k] = v
	}
	return cfg, rows.Err()
}

// SetConfig implements Store.SetConfig.
func (s *SQLiteStore) SetConfig(ctx context.Context, cfg map[string]string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM config`); err != nil {
		return fmt.Errorf("failed to clear config: %w", err)
	}
	for _, k := range SortedKeys(cfg) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO config ("key", "value") VALUES (?, ?)`, k, cfg[k]); err != nil {
			return fmt.Errorf("failed to write config key %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit config: %w", err)
	}
	return nil
}

// Close performs a WAL checkpoint and closes the database.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Printf("WARNING: failed to checkpoint WAL: %v", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

func scanRecords(rows *sql.Rows, table schema.Table) ([]schema.Record, error) {
	names := table.ColumnNames()
	recs := []schema.Record{}
	for rows.Next() {
		cells := make([]sql.NullString, len(names))
		dest := make([]any, len(names))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		vals := make(map[string]string, len(names))
		for i, n := range names {
			vals[n] = cells[i].String
		}
		rec, err := schema.FromValues(table, vals)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return recs, nil
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
