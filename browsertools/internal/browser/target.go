package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// locatorTarget re-queries its selector on every read, so a re-render that
// replaces the node between polls is picked up. Text is rod's innerText:
// content hidden by CSS is not part of it.
type locatorTarget struct {
	page     *rod.Page
	selector string
	replay   string
}

func (t *locatorTarget) Text(ctx context.Context) (string, error) {
	els, err := t.page.Context(ctx).Elements(t.selector)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", fmt.Errorf("browser: no element matches %s", t.selector)
	}
	return els.First().Text()
}

func (t *locatorTarget) Selector() string { return t.selector }

func (t *locatorTarget) ReplaySelector() string { return t.replay }
