package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/session/store"
)

const schema = `CREATE TABLE IF NOT EXISTS session_entries (
    namespace TEXT NOT NULL,
    key       TEXT NOT NULL,
    value     TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
)`

var _ store.Store = (*Store)(nil)

// Store keeps session entries in a SQLite table, one row per entry. Save
// replaces a namespace's rows inside a single transaction.
type Store struct {
	db        *sql.DB
	namespace string
}

// Open initializes or connects to the database at path.
func Open(ctx context.Context, path, namespace string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("[sqlitestore Open] create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore Open] open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("[sqlitestore Open] apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqlitestore Open] create schema: %w", err)
	}

	return &Store{db: db, namespace: namespace}, nil
}

func (s *Store) Load(ctx context.Context) (store.Entries, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_entries WHERE namespace = ?`, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore Load] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	entries := store.Entries{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("[sqlitestore Load] scan: %w", err)
		}
		entries[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[sqlitestore Load] rows: %w", err)
	}
	return entries, nil
}

func (s *Store) Save(ctx context.Context, entries store.Entries) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[sqlitestore Save] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM session_entries WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("[sqlitestore Save] delete: %w", err)
	}
	for k, v := range entries {
		if _, err = tx.ExecContext(ctx, `INSERT INTO session_entries (namespace, key, value) VALUES (?, ?, ?)`, s.namespace, k, v); err != nil {
			return fmt.Errorf("[sqlitestore Save] insert %q: %w", k, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("[sqlitestore Save] commit: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_entries WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("[sqlitestore Clear] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
