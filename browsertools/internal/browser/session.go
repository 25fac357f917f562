package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/browsermcp/assert"
	"github.com/hazyhaar/browsermcp/idgen"
)

// DefaultNavigationTimeout bounds Navigate when the session config has none.
const DefaultNavigationTimeout = 30 * time.Second

// Session is the live page context of the tool server: one tab and the
// snapshot most recently taken of it. It implements assert.Resolver.
type Session struct {
	mgr        *Manager
	navTimeout time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	tab        *Tab
	last       *Snapshot
	snapshotID idgen.Generator
}

// NewSession creates a Session over mgr. No tab is opened until Navigate.
func NewSession(mgr *Manager, navTimeout time.Duration) *Session {
	if navTimeout <= 0 {
		navTimeout = DefaultNavigationTimeout
	}
	return &Session{
		mgr:        mgr,
		navTimeout: navTimeout,
		logger:     mgr.cfg.Logger,
		snapshotID: idgen.Counter("s"),
	}
}

// Navigate loads pageURL in the session tab, opening it on first use, and
// captures a fresh snapshot.
func (s *Session) Navigate(ctx context.Context, pageURL string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		tab, err := OpenTab(s.mgr)
		if err != nil {
			return nil, err
		}
		s.tab = tab
	}
	// The old snapshot describes a page that is going away.
	s.last = nil

	if err := s.tab.Navigate(ctx, pageURL, s.navTimeout); err != nil {
		return nil, err
	}
	return s.captureLocked(ctx)
}

// Snapshot captures a new snapshot of the current page.
func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		return nil, assert.ErrNoPage
	}
	return s.captureLocked(ctx)
}

// LastSnapshot returns the most recent snapshot.
func (s *Session) LastSnapshot() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return nil, assert.ErrNoSnapshot
	}
	return s.last, nil
}

func (s *Session) captureLocked(ctx context.Context) (*Snapshot, error) {
	id := s.snapshotID()
	nodes, err := captureSnapshot(ctx, s.tab.Page, id)
	if err != nil {
		return nil, err
	}
	pageURL, title, err := s.tab.Info(ctx)
	if err != nil {
		return nil, err
	}
	s.last = NewSnapshot(id, pageURL, title, nodes)
	s.logger.Debug("browser: snapshot captured", "id", id, "url", pageURL, "nodes", len(nodes))
	return s.last, nil
}

// ResolveByRef binds ref from the latest snapshot to its element. The ref
// must belong to that snapshot and the element must still be attached.
func (s *Session) ResolveByRef(ctx context.Context, ref string) (assert.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil || s.last == nil {
		return nil, assert.ErrNoSnapshot
	}
	node, ok := s.last.Node(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", assert.ErrUnknownRef, ref)
	}

	selector := RefSelector(ref)
	els, err := s.tab.Page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s is no longer attached", assert.ErrUnknownRef, ref)
	}
	return &locatorTarget{page: s.tab.Page, selector: selector, replay: node.Path}, nil
}

// ResolveDocumentRoot targets the document body of the current page.
func (s *Session) ResolveDocumentRoot(context.Context) (assert.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tab == nil {
		return nil, assert.ErrNoPage
	}
	return &locatorTarget{page: s.tab.Page, selector: "body", replay: "body"}, nil
}

// Close closes the tab and forgets the snapshot. The browser keeps running.
func (s *Session) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = nil
	if s.tab == nil {
		return nil
	}
	err := s.tab.Close()
	s.tab = nil
	if err != nil {
		return fmt.Errorf("browser: close tab: %w", err)
	}
	return nil
}
