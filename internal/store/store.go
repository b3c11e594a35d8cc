package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/bruch/internal/apperr"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added article/sale counts to backups
const currentSchemaVersion = 1

// ErrNotInitialized is returned (wrapped as a storage error) by every
// operation on a Store that has not been initialized or has been closed.
var ErrNotInitialized = errors.New("store not initialized")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the handle to the local bruch database.
// A Store is created once per process and injected into every component.
type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// New returns an uninitialized handle for the database at path.
// Every operation fails with ErrNotInitialized until Init succeeds.
func New(path string) *Store {
	return &Store{path: path}
}

// Open creates or opens the database at path and initializes it.
func Open(path string) (*Store, error) {
	s := New(path)
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init opens the database, applies pragmas and migrations, and ensures a
// device id exists.
//
// Init is idempotent: once it has succeeded, further calls return nil and
// keep the existing connection. A failed Init leaves the handle
// uninitialized so it can be retried.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.Storage("init store", fmt.Errorf("create database directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return apperr.Storage("init store", fmt.Errorf("open database: %w", err))
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return apperr.Storage("init store", fmt.Errorf("connect to database: %w", err))
	}

	// SQLite only supports one writer at a time; a single connection also
	// serializes every statement issued by this process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return apperr.Storage("init store", fmt.Errorf("apply pragmas: %w", err))
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return apperr.Storage("init store", fmt.Errorf("apply schema: %w", err))
	}

	if err := ensureDeviceID(db); err != nil {
		db.Close()
		return apperr.Storage("init store", err)
	}

	s.db = db
	return nil
}

// Initialized reports whether Init has succeeded and Close has not been called.
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db != nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection. The handle returns to the
// uninitialized state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// conn returns the open database or a storage error wrapping ErrNotInitialized.
func (s *Store) conn(op string) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, apperr.Storage(op, ErrNotInitialized)
	}
	return s.db, nil
}

// withTx runs fn inside a transaction and commits it if fn returns nil.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	db, err := s.conn(op)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		if apperr.KindOf(err) != "" {
			return err
		}
		return apperr.Storage(op, err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the article_count and sale_count columns to backups
// created before v1. New databases get them from schema.sql.
func migrateToV1(db *sql.DB) error {
	for _, column := range []string{"article_count", "sale_count"} {
		exists, err := columnExists(db, "backups", column)
		if err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE backups ADD COLUMN %s INTEGER NOT NULL DEFAULT 0", column)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

// columnExists reports whether table has a column with the given name.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ensureDeviceID stores a UUIDv7 identifying this installation on first use.
func ensureDeviceID(db *sql.DB) error {
	var existing string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", settingDeviceID).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read device id: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate device id: %w", err)
	}
	if _, err := db.Exec("INSERT INTO settings (key, value) VALUES (?, ?)", settingDeviceID, id.String()); err != nil {
		return fmt.Errorf("store device id: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	db, err := s.conn("verify pragma")
	if err != nil {
		return err
	}
	var value string
	if err := db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
