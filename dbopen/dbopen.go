// Package dbopen opens the SQLite database behind the step recorder and
// brings its schema up to date.
//
// Pragmas applied on every open:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000 (WithBusyTimeout)
//	synchronous  = NORMAL
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("steps.db", dbopen.WithMkdirAll(), dbopen.WithMigrations(recording.Migrations...))
//
// In tests:
//
//	db := dbopen.OpenMemory(t, dbopen.WithSchema(recording.Schema))
package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

const driverName = "sqlite"

// Migration is one schema step. Migrations run in Version order, each in
// its own transaction, and only when PRAGMA user_version is below Version.
type Migration struct {
	Version int
	SQL     string
}

type config struct {
	busyTimeout int
	mkdirAll    bool
	schemas     []string
	migrations  []Migration
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithSchema queues idempotent DDL executed on every open, after pragmas.
func WithSchema(s string) Option { return func(c *config) { c.schemas = append(c.schemas, s) } }

// WithMigrations registers versioned schema steps tracked in PRAGMA user_version.
func WithMigrations(ms ...Migration) Option {
	return func(c *config) { c.migrations = append(c.migrations, ms...) }
}

// Open opens the SQLite database at path. The caller must blank-import
// modernc.org/sqlite. An in-memory database (":memory:") is pinned to one
// connection, since each connection would see its own empty database.
func Open(path string, opts ...Option) (*sql.DB, error) {
	cfg := config{busyTimeout: 10_000}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := setup(db, &cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func setup(db *sql.DB, cfg *config) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}
	for _, s := range cfg.schemas {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("dbopen: exec schema: %w", err)
		}
	}
	return migrate(context.Background(), db, cfg.migrations)
}

// SchemaVersion returns PRAGMA user_version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("dbopen: user_version: %w", err)
	}
	return v, nil
}

func migrate(ctx context.Context, db *sql.DB, ms []Migration) error {
	if len(ms) == 0 {
		return nil
	}
	ms = append([]Migration(nil), ms...)
	sort.Slice(ms, func(i, j int) bool { return ms[i].Version < ms[j].Version })

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	for _, m := range ms {
		if m.Version <= current {
			continue
		}
		err := RunTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.Version))
			return err
		})
		if err != nil {
			return fmt.Errorf("dbopen: migration %d: %w", m.Version, err)
		}
		current = m.Version
	}
	return nil
}

// OpenMemory opens an in-memory database for tests and closes it on cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
