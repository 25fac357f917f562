package assert

import (
	"encoding/json"
	"fmt"
)

// Against selects what the containment check runs on.
type Against string

const (
	AgainstElement Against = "element"
	AgainstPage    Against = "page"
)

func (a Against) valid() bool {
	return a == AgainstElement || a == AgainstPage
}

// Request is a validated browser_assert_contain_text call.
//
// Element is the human-readable description the agent used to pick Ref. It
// is carried for logs and recorded steps only; nothing checks it against the
// resolved target.
type Request struct {
	Against  Against `json:"against"`
	Element  string  `json:"element,omitempty"`
	Ref      string  `json:"ref,omitempty"`
	Expected string  `json:"expected"`
}

// Validate reports a *FatalError when the request cannot be evaluated.
func (r Request) Validate() error {
	if !r.Against.valid() {
		return &FatalError{Op: "validate", Err: fmt.Errorf("%w: %q", ErrInvalidAgainst, r.Against)}
	}
	if r.Against == AgainstElement && r.Ref == "" {
		return &FatalError{Op: "validate", Err: ErrRefRequired}
	}
	return nil
}

// wireRequest distinguishes a missing "expected" from an empty one.
type wireRequest struct {
	Against  *string `json:"against"`
	Element  string  `json:"element"`
	Ref      string  `json:"ref"`
	Expected *string `json:"expected"`
}

// ParseRequest decodes raw tool arguments into a validated Request. Every
// error it returns is a *FatalError.
func ParseRequest(data []byte) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return Request{}, &FatalError{Op: "decode", Err: err}
	}
	if w.Against == nil {
		return Request{}, &FatalError{Op: "validate", Err: fmt.Errorf("%w: against", ErrMissingField)}
	}
	if w.Expected == nil {
		return Request{}, &FatalError{Op: "validate", Err: fmt.Errorf("%w: expected", ErrMissingField)}
	}
	r := Request{
		Against:  Against(*w.Against),
		Element:  w.Element,
		Ref:      w.Ref,
		Expected: *w.Expected,
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
