package errors

import (
	stderrors "errors"
	"testing"
)

func TestHarnessError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *HarnessError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeNodeUnreachable, "node2 refused connection", ScopeGroup),
			want: "NODE_UNREACHABLE: node2 refused connection",
		},
		{
			name: "with wrapped error",
			err:  Wrap(stderrors.New("dial tcp: refused"), CodeNodeUnreachable, "node2 refused connection", ScopeGroup),
			want: "NODE_UNREACHABLE: node2 refused connection: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHarnessError_Unwrap(t *testing.T) {
	inner := stderrors.New("boom")
	err := Wrap(inner, CodeRPCTransport, "post failed", ScopeCase)

	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var he *HarnessError
	if !stderrors.As(err, &he) {
		t.Fatal("errors.As should match *HarnessError")
	}
	if he.Code != CodeRPCTransport {
		t.Errorf("Code = %q, want %q", he.Code, CodeRPCTransport)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(CodeConfirmationTimeout, "x", ScopeGroup)); got != CodeConfirmationTimeout {
		t.Errorf("CodeOf = %q, want %q", got, CodeConfirmationTimeout)
	}
	if got := CodeOf(stderrors.New("plain")); got != "" {
		t.Errorf("CodeOf(foreign) = %q, want empty", got)
	}
}

func TestScopeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Scope
	}{
		{"run scoped", New(CodeResolutionFailed, "x", ScopeRun), ScopeRun},
		{"group scoped", New(CodeTopologyViolation, "x", ScopeGroup), ScopeGroup},
		{"foreign error", stderrors.New("plain"), ScopeCase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScopeOf(tt.err); got != tt.want {
				t.Errorf("ScopeOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithParams(t *testing.T) {
	err := New(CodeGroupCreateFailed, "create failed", ScopeGroup).
		WithParams(map[string]interface{}{"group": "alpha"})

	if err.Params["group"] != "alpha" {
		t.Errorf("Params[group] = %v, want alpha", err.Params["group"])
	}

	// nil receiver and empty params must be safe no-ops
	var nilErr *HarnessError
	if nilErr.WithParams(map[string]interface{}{"a": 1}) != nil {
		t.Error("WithParams on nil receiver should return nil")
	}
}

func TestScope_String(t *testing.T) {
	if ScopeCase.String() != "case" || ScopeGroup.String() != "group" || ScopeRun.String() != "run" {
		t.Error("Scope.String() mismatch")
	}
}
