package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// backoff is the wait before each retry of a BUSY operation.
var backoff = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}

// IsBusy reports whether err is SQLite's BUSY/locked condition, which
// busy_timeout alone does not always absorb under WAL write contention.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// RunTx runs fn in a transaction, committing when it returns nil. The whole
// transaction is retried while the database reports BUSY, so fn must be
// safe to run more than once.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	return retryBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("dbopen: begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("dbopen: commit: %w", err)
		}
		return nil
	})
}

// Exec runs a single statement with the same BUSY retry as RunTx.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryBusy(ctx, func() error {
		var err error
		res, err = db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func retryBusy(ctx context.Context, op func() error) error {
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !IsBusy(err) || attempt == len(backoff) {
			return err
		}
		t := time.NewTimer(backoff[attempt])
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: retry interrupted: %w", ctx.Err())
		case <-t.C:
		}
	}
}
