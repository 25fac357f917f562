package browser

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// requestFilter decides which of the page's requests fail: listed resource
// types (images, fonts, media, stylesheets) and URLs the guard rejects.
type requestFilter struct {
	blockSet map[string]bool
	guard    func(string) error
}

func newRequestFilter(types []string, guard func(string) error) requestFilter {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}
	return requestFilter{blockSet: blockSet, guard: guard}
}

func (f requestFilter) active() bool {
	return len(f.blockSet) > 0 || f.guard != nil
}

// check returns nil when the request may continue.
func (f requestFilter) check(resType, reqURL string) error {
	if shouldBlock(f.blockSet, resType) {
		return fmt.Errorf("browser: %s requests are blocked", strings.ToLower(resType))
	}
	if f.guard != nil {
		return f.guard(reqURL)
	}
	return nil
}

// applyRequestFilter intercepts every request on page, redirects included,
// and fails the ones f rejects. The returned router must be stopped when the
// tab closes.
func applyRequestFilter(page *rod.Page, f requestFilter, logger *slog.Logger) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		reqURL := ctx.Request.URL().String()
		if err := f.check(string(ctx.Request.Type()), reqURL); err != nil {
			logger.Debug("browser: request blocked", "url", reqURL, "error", err)
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)
	switch lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}
	return blockSet[lower]
}
