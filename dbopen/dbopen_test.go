package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/browsermcp/dbopen"
)

func TestOpenMemory_Pragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatal(err)
	}
	if busyTimeout != 10_000 {
		t.Fatalf("busy_timeout = %d, want 10000", busyTimeout)
	}
}

func TestWithBusyTimeout(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithBusyTimeout(500))
	var v int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&v); err != nil {
		t.Fatal(err)
	}
	if v != 500 {
		t.Fatalf("busy_timeout = %d, want 500", v)
	}
}

func TestWithSchema(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`))
	if _, err := dbopen.Exec(context.Background(), db, `INSERT INTO t (v) VALUES (?)`, "x"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestWithMkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "steps.db")
	db, err := dbopen.Open(path, dbopen.WithMkdirAll())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.Close()
}

func TestIsBusy(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY"), true},
		{errors.New("database is locked"), true},
		{errors.New("database table is locked"), true},
		{errors.New("no such table"), false},
	}
	for _, c := range cases {
		if got := dbopen.IsBusy(c.err); got != c.want {
			t.Errorf("IsBusy(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

var testMigrations = []dbopen.Migration{
	{Version: 2, SQL: `ALTER TABLE notes ADD COLUMN author TEXT NOT NULL DEFAULT ''`},
	{Version: 1, SQL: `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`},
}

func TestWithMigrations(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithMigrations(testMigrations...))
	ctx := context.Background()

	v, err := dbopen.SchemaVersion(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Fatalf("user_version = %d, want 2", v)
	}
	if _, err := db.Exec(`INSERT INTO notes (body, author) VALUES ('x', 'me')`); err != nil {
		t.Fatalf("insert after migrations: %v", err)
	}
}

func TestWithMigrations_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.db")
	db, err := dbopen.Open(path, dbopen.WithMigrations(testMigrations[1]))
	if err != nil {
		t.Fatal(err)
	}
	db.Exec(`INSERT INTO notes (body) VALUES ('kept')`)
	db.Close()

	// Version 1 is not re-run; version 2 is applied on top.
	db, err = dbopen.Open(path, dbopen.WithMigrations(testMigrations...))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var body, author string
	if err := db.QueryRow(`SELECT body, author FROM notes`).Scan(&body, &author); err != nil {
		t.Fatal(err)
	}
	if body != "kept" || author != "" {
		t.Fatalf("row = %q/%q", body, author)
	}
}

func TestWithMigrations_FailureRollsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.db")
	_, err := dbopen.Open(path, dbopen.WithMigrations(
		dbopen.Migration{Version: 1, SQL: `CREATE TABLE ok (id INTEGER)`},
		dbopen.Migration{Version: 2, SQL: `CREATE TABLE half (id INTEGER); SELECT * FROM missing_table`},
	))
	if err == nil {
		t.Fatal("expected migration error")
	}

	db, err := dbopen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if v, _ := dbopen.SchemaVersion(context.Background(), db); v != 1 {
		t.Errorf("user_version = %d, want 1", v)
	}
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'half'`).Scan(&n)
	if n != 0 {
		t.Error("failed migration left table behind")
	}
}

func TestRunTx(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE tx_test (id TEXT PRIMARY KEY, val TEXT)`))
	ctx := context.Background()

	err := dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO tx_test (id, val) VALUES ('1', 'hello')`)
		return err
	})
	if err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	sentinel := errors.New("rollback me")
	err = dbopen.RunTx(ctx, db, func(tx *sql.Tx) error {
		tx.Exec(`INSERT INTO tx_test (id, val) VALUES ('2', 'gone')`)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunTx error = %v, want sentinel", err)
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM tx_test`).Scan(&count)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
