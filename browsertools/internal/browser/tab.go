package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps the Rod page the tools drive.
type Tab struct {
	Page    *rod.Page
	router  *rod.HijackRouter
	manager *Manager
}

// OpenTab creates a blank tab, with stealth, resource blocking and the
// request guard applied when configured.
func OpenTab(mgr *Manager) (*Tab, error) {
	b, err := mgr.Browser()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{Page: page, manager: mgr}
	if f := newRequestFilter(mgr.cfg.ResourceBlocking, mgr.cfg.Guard); f.active() {
		t.router = applyRequestFilter(page, f, mgr.cfg.Logger)
	}
	return t, nil
}

// Navigate loads pageURL and waits for the load event, both bounded by
// timeout. A load-event timeout is only logged: the page may still be usable.
func (t *Tab) Navigate(ctx context.Context, pageURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// Info returns the current URL and title.
func (t *Tab) Info(ctx context.Context) (pageURL, title string, err error) {
	info, err := t.Page.Context(ctx).Info()
	if err != nil {
		return "", "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, info.Title, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
