package browsertools

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/browsermcp/recording"
)

func TestNew_RecordingDBAndRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec", "steps.db")
	ctx := context.Background()

	// Seed one stale and one fresh step.
	db, err := recording.OpenDB(path)
	if err != nil {
		t.Fatalf("seed open: %v", err)
	}
	seed := recording.NewStore(db)
	if err := seed.Append(ctx, &recording.Step{SessionID: "old", Tool: "browser_navigate", CreatedAt: time.Now().Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := seed.Append(ctx, &recording.Step{SessionID: "new", Tool: "browser_navigate"}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	cfg := testConfig()
	cfg.Recording.Enabled = true
	cfg.Recording.DB = path
	cfg.Recording.Retention = 24 * time.Hour
	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), WithBackend(&fakeBackend{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	if srv.store == nil || srv.recorder == nil {
		t.Fatal("recording store not wired")
	}
	old, err := srv.store.Steps(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("stale steps survived retention: %d", len(old))
	}
	fresh, _ := srv.store.Steps(ctx, "new")
	if len(fresh) != 1 {
		t.Errorf("fresh steps = %d, want 1", len(fresh))
	}
}

func TestNew_RecordingLogOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Recording.Enabled = true
	srv, err := New(cfg, nil, WithBackend(&fakeBackend{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	if srv.store != nil {
		t.Error("no db configured, store should be nil")
	}
	if srv.recorder == nil {
		t.Error("log recorder should be active")
	}
}

func TestNew_SessionID(t *testing.T) {
	srv, err := New(testConfig(), nil, WithBackend(&fakeBackend{}))
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()
	if id := srv.SessionID(); len(id) <= len("sess_") || id[:5] != "sess_" {
		t.Errorf("session id = %q", id)
	}
	if srv.recorder != nil {
		t.Error("recording is off by default")
	}
}
