// Package assert implements browser_assert_contain_text: a bounded,
// retrying check that an element or the whole page contains a substring.
//
// Outcomes travel on two channels that never mix. A Result (PASS or FAIL)
// is the normal answer, even when the text is absent. A *FatalError means
// the check could not run: malformed request, no snapshot, unknown ref.
package assert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/hazyhaar/browsermcp/envsubst"
	"github.com/hazyhaar/browsermcp/kit"
	"github.com/hazyhaar/browsermcp/recording"
)

// ToolName is the MCP tool name of the assertion.
const ToolName = "browser_assert_contain_text"

// Evaluator runs assertions against the targets a Resolver hands out.
type Evaluator struct {
	resolver Resolver
	matcher  Matcher
	env      envsubst.Env
	recorder recording.Recorder
	logger   *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMatcher replaces the default Poller.
func WithMatcher(m Matcher) Option { return func(e *Evaluator) { e.matcher = m } }

// WithTimeout sets the default Poller's timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) { e.matcher = NewPoller(d) }
}

// WithEnv sets the environment used to expand ${VAR} in expected text.
func WithEnv(env envsubst.Env) Option { return func(e *Evaluator) { e.env = env } }

// WithRecorder turns on recording mode.
func WithRecorder(r recording.Recorder) Option { return func(e *Evaluator) { e.recorder = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Evaluator) { e.logger = l } }

// New creates an Evaluator.
func New(resolver Resolver, opts ...Option) *Evaluator {
	e := &Evaluator{
		resolver: resolver,
		matcher:  NewPoller(DefaultTimeout),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Evaluate runs one assertion. It returns either a Result or a
// *FatalError, never both.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	expected := envsubst.Expand(req.Expected, e.env)

	target, err := e.resolve(ctx, req)
	if err != nil {
		return Result{}, &FatalError{Op: "resolve", Err: err}
	}

	var res Result
	var mismatch *MismatchError
	switch err := e.matcher.AwaitContainsText(ctx, target, expected); {
	case err == nil:
		res = Result{Verdict: Pass, Against: req.Against}
	case errors.As(err, &mismatch):
		res = Result{Verdict: Fail, Against: req.Against, Error: mismatch.Error()}
	default:
		return Result{}, &FatalError{Op: "check", Err: err}
	}

	e.logger.DebugContext(ctx, "assert: evaluated",
		"against", req.Against, "ref", req.Ref, "selector", target.Selector(),
		"result", res.Verdict, "duration", time.Since(start))
	e.record(ctx, req, target, res, time.Since(start))
	return res, nil
}

func (e *Evaluator) resolve(ctx context.Context, req Request) (Target, error) {
	if req.Against == AgainstElement {
		return e.resolver.ResolveByRef(ctx, req.Ref)
	}
	return e.resolver.ResolveDocumentRoot(ctx)
}

func (e *Evaluator) record(ctx context.Context, req Request, target Target, res Result, d time.Duration) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(ctx, recording.Step{
		SessionID: kit.GetSessionID(ctx),
		Tool:      ToolName,
		Trace:     Describe(req),
		Code:      Statement(replaySelector(target), req.Expected),
		Result:    string(res.Verdict),
		Duration:  d,
	})
}

// Describe renders the check as one human-readable line. The expected text
// is shown as written, placeholders unexpanded.
func Describe(req Request) string {
	if req.Against == AgainstPage {
		return fmt.Sprintf("Assert that the page contains text %q", req.Expected)
	}
	if req.Element != "" {
		return fmt.Sprintf("Assert that %q (ref %s) contains text %q", req.Element, req.Ref, req.Expected)
	}
	return fmt.Sprintf("Assert that element %s contains text %q", req.Ref, req.Expected)
}

// Statement renders the check as Go statements replayable in a rod test
// against a freshly loaded page. ${VAR} placeholders are expanded from the
// replaying process's environment.
func Statement(selector, expected string) string {
	want := strconv.Quote(expected)
	if placeholder.MatchString(expected) {
		want = fmt.Sprintf("os.Expand(%s, os.Getenv)", want)
	}
	return fmt.Sprintf("if got := strings.Join(strings.Fields(page.MustElement(%s).MustText()), \" \"); !strings.Contains(got, %s) {\n"+
		"\tt.Errorf(\"%%s: %%q does not contain %%q\", %s, got, %s)\n"+
		"}", strconv.Quote(selector), want, strconv.Quote(selector), want)
}

var placeholder = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// Locator is implemented by targets that can be found again without the
// snapshot's refs.
type Locator interface {
	// ReplaySelector is a CSS selector matching the target on a fresh load
	// of the same page.
	ReplaySelector() string
}

func replaySelector(t Target) string {
	if l, ok := t.(Locator); ok {
		if sel := l.ReplaySelector(); sel != "" {
			return sel
		}
	}
	return t.Selector()
}
