package assert

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Verdict is the outcome of a containment check.
type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

// Result is the normal response of an assertion, whatever the verdict.
// Field order is the wire order: result, against, error.
type Result struct {
	Verdict Verdict `json:"result"`
	Against Against `json:"against"`
	Error   string  `json:"error,omitempty"`
}

// Passed reports whether the verdict is PASS.
func (r Result) Passed() bool { return r.Verdict == Pass }

var (
	ErrRefRequired    = errors.New("ref is required when asserting against an element")
	ErrInvalidAgainst = errors.New(`against must be "element" or "page"`)
	ErrMissingField   = errors.New("missing required field")
	ErrNoSnapshot     = errors.New("no page snapshot available, navigate or capture a snapshot first")
	ErrUnknownRef     = errors.New("ref not found in the current page snapshot, capture a new snapshot")
	ErrNoPage         = errors.New("no page is open, navigate first")
)

// FatalError is a caller or environment fault: the assertion could not be
// evaluated at all. It is never reported as a FAIL result.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("assert: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// MismatchError is returned by a Matcher when the text did not show up
// before the deadline. Its message becomes the FAIL result's error.
type MismatchError struct {
	Selector string
	Expected string
	Received string
	Timeout  time.Duration
	// LastErr is the last read failure, if the final attempt could not read
	// the target at all.
	LastErr error
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timed out after %s waiting for %s to contain text\n", e.Timeout, e.Selector)
	fmt.Fprintf(&b, "expected substring: %q\n", e.Expected)
	if e.LastErr != nil {
		fmt.Fprintf(&b, "last error: %v", e.LastErr)
	} else {
		fmt.Fprintf(&b, "received string: %q", e.Received)
	}
	return b.String()
}
