package recording

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/browsermcp/dbopen"
	"github.com/hazyhaar/browsermcp/idgen"
)

// Schema is the DDL for the step table, idempotent. OpenDB applies it as
// migration 1; tests may pass it to dbopen.WithSchema directly.
const Schema = `
CREATE TABLE IF NOT EXISTS recorded_steps (
    step_id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    tool TEXT NOT NULL,
    trace TEXT NOT NULL,
    code TEXT NOT NULL,
    result TEXT,
    duration_ms INTEGER,
    created_at INTEGER NOT NULL,
    UNIQUE (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_recorded_steps_session
    ON recorded_steps(session_id, seq);
`

// Migrations versions the recording database.
var Migrations = []dbopen.Migration{
	{Version: 1, SQL: Schema},
}

// OpenDB opens (creating it and its directory if needed) a recording
// database at path, migrated to the current schema.
func OpenDB(path string) (*sql.DB, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithMigrations(Migrations...))
	if err != nil {
		return nil, fmt.Errorf("recording: open %s: %w", path, err)
	}
	return db, nil
}

// Store persists steps in SQLite.
type Store struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator sets the generator for step IDs.
func WithIDGenerator(gen idgen.Generator) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger used for swallowed write failures.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore wraps a database that already carries Schema.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:     db,
		newID:  idgen.Prefixed("step_", idgen.Default),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Record implements Recorder. The step's sequence number is the next one
// for its session.
func (s *Store) Record(ctx context.Context, step Step) {
	if err := s.Append(ctx, &step); err != nil {
		s.logger.Error("recording: append failed", "error", err, "tool", step.Tool, "session_id", step.SessionID)
	}
}

// Append inserts step, filling ID, Seq and CreatedAt.
func (s *Store) Append(ctx context.Context, step *Step) error {
	if step.ID == "" {
		step.ID = s.newID()
	}
	if step.CreatedAt.IsZero() {
		step.CreatedAt = time.Now()
	}
	// Seq is read and written in one transaction.
	err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM recorded_steps WHERE session_id = ?`,
			step.SessionID).Scan(&step.Seq); err != nil {
			return fmt.Errorf("recording: next seq: %w", err)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO recorded_steps
			(step_id, session_id, seq, tool, trace, code, result, duration_ms, created_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			step.ID, step.SessionID, step.Seq, step.Tool, step.Trace, step.Code,
			step.Result, step.Duration.Milliseconds(), step.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("recording: insert: %w", err)
		}
		return nil
	})
	if err != nil {
		step.Seq = 0
		return err
	}
	return nil
}

// Steps returns the steps of a session in recording order.
func (s *Store) Steps(ctx context.Context, sessionID string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT step_id, session_id, seq, tool, trace, code,
		result, duration_ms, created_at
		FROM recorded_steps WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("recording: query steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		var result sql.NullString
		var durationMs sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&st.ID, &st.SessionID, &st.Seq, &st.Tool, &st.Trace, &st.Code,
			&result, &durationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("recording: scan step: %w", err)
		}
		if result.Valid {
			st.Result = result.String
		}
		if durationMs.Valid {
			st.Duration = time.Duration(durationMs.Int64) * time.Millisecond
		}
		st.CreatedAt = time.UnixMilli(createdAt)
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// Cleanup deletes steps older than retention.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).UnixMilli()
	res, err := dbopen.Exec(ctx, s.db, `DELETE FROM recorded_steps WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("recording: cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Script renders steps as a standalone Go test file that replays them with
// rod against a freshly launched browser.
func Script(steps []Step) string {
	var body strings.Builder
	for _, st := range steps {
		fmt.Fprintf(&body, "\t// %s\n", strings.ReplaceAll(st.Trace, "\n", " "))
		for _, line := range strings.Split(st.Code, "\n") {
			fmt.Fprintf(&body, "\t%s\n", line)
		}
	}
	code := body.String()

	var b strings.Builder
	b.WriteString("package recorded_test\n\nimport (\n")
	if strings.Contains(code, "os.Expand(") {
		b.WriteString("\t\"os\"\n")
	}
	if strings.Contains(code, "strings.Contains(") {
		b.WriteString("\t\"strings\"\n")
	}
	b.WriteString("\t\"testing\"\n\n\t\"github.com/go-rod/rod\"\n)\n\n")
	b.WriteString("func TestRecordedSession(t *testing.T) {\n")
	b.WriteString("\tbrowser := rod.New().MustConnect()\n")
	b.WriteString("\tdefer browser.MustClose()\n")
	b.WriteString("\tpage := browser.MustPage()\n\n")
	b.WriteString(code)
	b.WriteString("}\n")
	return b.String()
}
