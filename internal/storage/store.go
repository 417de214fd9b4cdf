package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteKV implements KV backed by a SQLite database.
type SQLiteKV struct {
	db *sql.DB

	// Prepared statements
	getValue *sql.Stmt
	setValue *sql.Stmt
}

const upsertSQL = `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// OpenSQLite opens (creating if needed) the database at path and runs
// migrations. The returned store owns the *sql.DB.
func OpenSQLite(path string) (*SQLiteKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Immediate transactions take the write lock at BEGIN, so concurrent
	// writers wait on busy_timeout instead of failing the lock upgrade.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	runner := NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	kv, err := NewSQLiteKV(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// NewSQLiteKV creates a SQLiteKV from an already-opened and migrated database.
func NewSQLiteKV(db *sql.DB) (*SQLiteKV, error) {
	s := &SQLiteKV{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteKV) prepareStatements() error {
	var err error

	s.getValue, err = s.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setValue, err = s.db.Prepare(upsertSQL)
	if err != nil {
		return err
	}

	return nil
}

// Get returns the stored value for key.
func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.getValue.QueryRowContext(ctx, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Set replaces the value for key.
func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.setValue.ExecContext(ctx, key, string(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetMany returns the stored values for keys from a single statement, so the
// result is one consistent snapshot. Unset keys are absent from the map.
func (s *SQLiteKV) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := `SELECT key, value FROM kv WHERE key IN (?` + strings.Repeat(",?", len(keys)-1) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", strings.Join(keys, ","), err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan kv row: %w", err)
		}
		out[key] = []byte(value)
	}
	return out, rows.Err()
}

// SetMany replaces every key in values inside one transaction.
func (s *SQLiteKV) SetMany(ctx context.Context, values map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt := tx.StmtContext(ctx, s.setValue)
	for _, key := range sortedKeys(values) {
		if _, err := stmt.ExecContext(ctx, key, string(values[key])); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Update reads and rewrites key inside a single transaction.
func (s *SQLiteKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current []byte
	ok := true
	var value string
	err = tx.StmtContext(ctx, s.getValue).QueryRowContext(ctx, key).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		ok = false
	case err != nil:
		return fmt.Errorf("get %s: %w", key, err)
	default:
		current = []byte(value)
	}

	next, write, err := fn(current, ok)
	if err != nil {
		return err
	}
	if !write {
		return nil
	}

	if _, err := tx.StmtContext(ctx, s.setValue).ExecContext(ctx, key, string(next)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return tx.Commit()
}

func sortedKeys(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the main database file, or "" for in-memory databases.
func (s *SQLiteKV) Path() string {
	var seq int
	var name, file string
	if err := s.db.QueryRow("PRAGMA database_list").Scan(&seq, &name, &file); err != nil {
		return ""
	}
	return file
}

// SizeBytes returns the database size. For on-disk databases it uses
// os.Stat, otherwise page_count * page_size.
func (s *SQLiteKV) SizeBytes() int64 {
	if path := s.Path(); path != "" {
		if info, err := os.Stat(path); err == nil {
			return info.Size()
		}
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// Close releases prepared statements and the database.
func (s *SQLiteKV) Close() error {
	for _, stmt := range []*sql.Stmt{s.getValue, s.setValue} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
