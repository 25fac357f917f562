// Package browsertools is the browser-automation tool server: it owns the
// Chrome session, the assertion evaluator and the step recorder, and exposes
// them as MCP tools.
package browsertools

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/browsermcp/assert"
	"github.com/hazyhaar/browsermcp/browsertools/internal/browser"
	"github.com/hazyhaar/browsermcp/envsubst"
	"github.com/hazyhaar/browsermcp/idgen"
	"github.com/hazyhaar/browsermcp/kit"
	"github.com/hazyhaar/browsermcp/recording"
	"github.com/hazyhaar/browsermcp/urlguard"
)

// Backend is the live page the tools act on. *browser.Session is the Chrome
// implementation.
type Backend interface {
	assert.Resolver
	Navigate(ctx context.Context, pageURL string) (*browser.Snapshot, error)
	Snapshot(ctx context.Context) (*browser.Snapshot, error)
	Close(ctx context.Context) error
}

// Server wires the tools together. Tool calls are serialized: one page,
// one call at a time.
type Server struct {
	cfg       *Config
	logger    *slog.Logger
	backend   Backend
	mgr       *browser.Manager
	evaluator *assert.Evaluator
	guard     urlguard.Policy
	env       envsubst.Env
	store     *recording.Store
	db        *sql.DB
	recorder  recording.Recorder
	sessionID string

	mu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithBackend replaces the Chrome session.
func WithBackend(b Backend) Option { return func(s *Server) { s.backend = b } }

// WithEnv sets the environment for ${VAR} expansion in assertions.
func WithEnv(env envsubst.Env) Option { return func(s *Server) { s.env = env } }

// WithRecordingStore persists recorded steps in store. Recording is enabled
// even if the config leaves it off.
func WithRecordingStore(store *recording.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithSessionID fixes the session ID steps are recorded under.
func WithSessionID(id string) Option { return func(s *Server) { s.sessionID = id } }

// New creates a Server from configuration.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		guard: urlguard.Policy{
			AllowedOrigins:      cfg.Browser.AllowedOrigins,
			BlockedOrigins:      cfg.Browser.BlockedOrigins,
			BlockPrivateNetwork: cfg.Browser.BlockPrivateNetwork,
		},
	}
	for _, o := range opts {
		o(s)
	}
	if s.sessionID == "" {
		s.sessionID = idgen.Prefixed("sess_", idgen.Default)()
	}

	if s.backend == nil {
		bcfg := browser.Config{
			RemoteURL:        cfg.Browser.Remote,
			Headful:          cfg.Browser.Headful,
			Bin:              cfg.Browser.Bin,
			Stealth:          cfg.Browser.Stealth,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			Logger:           logger,
		}
		if s.guard.Active() {
			bcfg.Guard = s.guard.CheckRequest
		}
		s.mgr = browser.NewManager(bcfg)
		s.backend = browser.NewSession(s.mgr, cfg.Browser.NavigationTimeout)
	}

	if err := s.openRecording(); err != nil {
		s.Close()
		return nil, err
	}

	evalOpts := []assert.Option{
		assert.WithTimeout(cfg.Assert.Timeout),
		assert.WithEnv(s.env),
		assert.WithLogger(logger),
	}
	if s.recorder != nil {
		evalOpts = append(evalOpts, assert.WithRecorder(s.recorder))
	}
	s.evaluator = assert.New(s.backend, evalOpts...)
	return s, nil
}

func (s *Server) openRecording() error {
	if s.store == nil && s.cfg.Recording.Enabled && s.cfg.Recording.DB != "" {
		db, err := recording.OpenDB(s.cfg.Recording.DB)
		if err != nil {
			return fmt.Errorf("browsertools: %w", err)
		}
		s.db = db
		s.store = recording.NewStore(db, recording.WithLogger(s.logger))

		if r := s.cfg.Recording.Retention; r > 0 {
			n, err := s.store.Cleanup(context.Background(), r)
			if err != nil {
				s.logger.Warn("browsertools: recording cleanup failed", "error", err)
			} else if n > 0 {
				s.logger.Info("browsertools: pruned recorded steps", "deleted", n, "retention", r)
			}
		}
	}
	if s.store == nil && !s.cfg.Recording.Enabled {
		return nil
	}

	recs := recording.Multi{recording.LogRecorder{Logger: s.logger}}
	if s.store != nil {
		recs = append(recs, s.store)
	}
	s.recorder = recs
	return nil
}

// SessionID is the ID steps are recorded under.
func (s *Server) SessionID() string { return s.sessionID }

// Close releases the tab, Chrome and the recording database.
func (s *Server) Close() error {
	var firstErr error
	if s.backend != nil {
		if err := s.backend.Close(context.Background()); err != nil {
			firstErr = err
		}
	}
	if s.mgr != nil {
		if err := s.mgr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// serialize runs one tool call at a time.
func (s *Server) serialize(next kit.Endpoint) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return next(ctx, req)
	}
}

func (s *Server) record(ctx context.Context, step recording.Step) {
	if s.recorder == nil {
		return
	}
	step.SessionID = kit.GetSessionID(ctx)
	s.recorder.Record(ctx, step)
}
