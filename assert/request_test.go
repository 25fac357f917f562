package assert

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Request
		wantErr error
	}{
		{
			name: "element",
			raw:  `{"element":"Submit button","ref":"s1e3","against":"element","expected":"Submit"}`,
			want: Request{Against: AgainstElement, Element: "Submit button", Ref: "s1e3", Expected: "Submit"},
		},
		{
			name: "page",
			raw:  `{"against":"page","expected":"Submit"}`,
			want: Request{Against: AgainstPage, Expected: "Submit"},
		},
		{
			name: "empty expected is valid",
			raw:  `{"against":"page","expected":""}`,
			want: Request{Against: AgainstPage},
		},
		{name: "missing ref", raw: `{"against":"element","expected":"Submit"}`, wantErr: ErrRefRequired},
		{name: "missing against", raw: `{"expected":"Submit"}`, wantErr: ErrMissingField},
		{name: "missing expected", raw: `{"against":"page"}`, wantErr: ErrMissingField},
		{name: "bad against", raw: `{"against":"frame","expected":"x"}`, wantErr: ErrInvalidAgainst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest([]byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				var fatal *FatalError
				if !errors.As(err, &fatal) {
					t.Fatalf("err %T is not *FatalError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRequest_Malformed(t *testing.T) {
	_, err := ParseRequest([]byte(`{"against":`))
	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Op != "decode" {
		t.Fatalf("expected decode *FatalError, got %v", err)
	}
}
