package assert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a containment check when none is configured.
const DefaultTimeout = 5 * time.Second

// Target is a lazily evaluated handle on the text an assertion reads.
type Target interface {
	// Text returns the target's rendered text as of now.
	Text(ctx context.Context) (string, error)
	// Selector describes how the target is located, for diagnostics and
	// recorded statements.
	Selector() string
}

// Resolver binds an assertion to a Target on the live page.
type Resolver interface {
	ResolveByRef(ctx context.Context, ref string) (Target, error)
	ResolveDocumentRoot(ctx context.Context) (Target, error)
}

// Matcher waits for a target to contain a substring. It returns nil on
// success, a *MismatchError when the deadline passes, and any other error
// when the caller's context ends first.
type Matcher interface {
	AwaitContainsText(ctx context.Context, target Target, text string) error
}

// Poller is the default Matcher. It reads the target immediately, then
// retries on the Intervals schedule (the last interval repeats) until the
// text appears or Timeout elapses.
type Poller struct {
	Timeout   time.Duration
	Intervals []time.Duration
}

var defaultIntervals = []time.Duration{
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
}

// NewPoller returns a Poller with the default retry schedule.
func NewPoller(timeout time.Duration) *Poller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Poller{Timeout: timeout, Intervals: defaultIntervals}
}

// AwaitContainsText implements Matcher.
func (p *Poller) AwaitContainsText(ctx context.Context, target Target, text string) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	intervals := p.Intervals
	if len(intervals) == 0 {
		intervals = defaultIntervals
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	want := normalizeWhitespace(text)
	var received string
	var lastErr error

	for attempt := 0; ; attempt++ {
		got, err := target.Text(checkCtx)
		if err == nil {
			received = normalizeWhitespace(got)
			lastErr = nil
			if strings.Contains(received, want) {
				return nil
			}
		} else {
			lastErr = err
		}

		wait := intervals[min(attempt, len(intervals)-1)]
		timer := time.NewTimer(wait)
		select {
		case <-checkCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return fmt.Errorf("assert: check interrupted: %w", ctx.Err())
			}
			if errors.Is(lastErr, context.DeadlineExceeded) && received != "" {
				// The final read raced the deadline.
				lastErr = nil
			}
			return &MismatchError{
				Selector: target.Selector(),
				Expected: want,
				Received: received,
				Timeout:  timeout,
				LastErr:  lastErr,
			}
		case <-timer.C:
		}
	}
}

// normalizeWhitespace collapses runs of whitespace (including non-breaking
// spaces) into one space and trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
