package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the ent SQL driver and provides access to repositories.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequence
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs the schema migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time. A single connection serializes
	// access and keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, drv: drv, seq: &sequence{drv: drv}}, nil
}

// Driver returns the underlying ent SQL driver.
func (s *Store) Driver() *entsql.Driver {
	return s.drv
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// AttemptRepo returns an AttemptRepo backed by this store.
func (s *Store) AttemptRepo() AttemptRepo {
	return &attemptRepo{drv: s.drv, seq: s.seq}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{drv: s.drv, seq: s.seq}
}

// ManifestRepo returns a ManifestRepo backed by this store.
func (s *Store) ManifestRepo() ManifestRepo {
	return &manifestRepo{drv: s.drv}
}

// applyPragmas configures SQLite for durable single-process use.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. CELLTUTOR_DB environment variable
// 2. $XDG_DATA_HOME/celltutor/celltutor.db
// 3. ~/.local/share/celltutor/celltutor.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("CELLTUTOR_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome, err := DataHome()
	if err != nil {
		return "", err
	}

	p := filepath.Join(dataHome, "celltutor.db")
	return p, EnsureDir(p)
}

// DataHome returns the celltutor data directory under $XDG_DATA_HOME,
// falling back to ~/.local/share.
func DataHome() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "celltutor"), nil
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
