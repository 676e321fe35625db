package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite implements Store on a local SQLite database. It also carries
// the CRUD surface the task API serves.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed store at the
// given path. Enables WAL mode, foreign keys and a busy timeout.
func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := initDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMemory creates an in-memory SQLite store for testing. Each call
// gets its own named database; the shared cache lets multiple
// connections see it.
func NewMemory(ctx context.Context) (*SQLite, error) {
	name := fmt.Sprintf("file:mem-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", name)
	if err != nil {
		return nil, fmt.Errorf("opening memory database: %w", err)
	}

	s, err := initDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func initDB(ctx context.Context, db *sql.DB) (*SQLite, error) {
	// modernc.org/sqlite ignores _foreign_keys in the connection string
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// A single writer connection avoids SQLITE_BUSY under the serial
	// access pattern the scheduler uses.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
