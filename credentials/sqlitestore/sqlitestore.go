// Package sqlitestore persists the session token pair in a local SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0700

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second

	// busyTimeoutMs is how long SQLite waits on a locked database.
	busyTimeoutMs = 5000
)

const schema = `CREATE TABLE IF NOT EXISTS credentials (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

var _ credentials.Store = (*Store)(nil)

// Store keeps the two token entries as rows of a key-value table.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates (if needed) and opens the database at path, applying the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, busyTimeoutMs)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	_ = os.Chmod(path, filePermissions) //nolint:errcheck // tightening only

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Save writes both entries in one transaction.
func (s *Store) Save(ctx context.Context, pair credentials.TokenPair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[sqlitestore.Save] begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	updated := s.now().Unix()
	for key, value := range map[string]string{
		credentials.AccessTokenKey:  pair.AccessToken,
		credentials.RefreshTokenKey: pair.RefreshToken,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, updated); err != nil {
			return fmt.Errorf("[sqlitestore.Save] upsert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[sqlitestore.Save] commit: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*credentials.TokenPair, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM credentials WHERE key IN (?, ?)`,
		credentials.AccessTokenKey, credentials.RefreshTokenKey)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore.Load] query: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string, 2)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("[sqlitestore.Load] scan: %w", err)
		}
		entries[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[sqlitestore.Load] rows: %w", err)
	}
	return credentials.FromEntries(entries)
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key IN (?, ?)`,
		credentials.AccessTokenKey, credentials.RefreshTokenKey); err != nil {
		return fmt.Errorf("[sqlitestore.Clear] delete: %w", err)
	}
	return nil
}
