package gateway

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestIsDenialMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want bool
	}{
		{"membership denial", "PD012345: sender is not a member of privacy group", true},
		{"uppercase", "Transaction REJECTED: NOT AUTHORIZED for group", true},
		{"forbidden", "403 forbidden", true},
		{"group invisible", "privacy group not found: 0xabc", true},
		{"permission", "permission denied for key handle", true},
		{"internal error", "PD010101: internal flush error", false},
		{"timeout text", "context deadline exceeded", false},
		{"empty", "", false},
		{"nonsense", "unexpected EOF", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDenialMessage(tt.msg); got != tt.want {
				t.Errorf("isDenialMessage(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestIsGroupNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rejected not found", &Error{Kind: Rejected, Code: -32000, Message: "privacy group not found: 0xabc"}, true},
		{"rejected membership denial", &Error{Kind: Rejected, Code: -32000, Message: "sender is not a member of privacy group"}, false},
		{"wrapped rejection", fmt.Errorf("lookup: %w", &Error{Kind: Rejected, Message: "Privacy Group Not Found"}), true},
		{"transport with not-found text", &Error{Kind: Transport, Message: "privacy group not found: 0xabc"}, false},
		{"foreign error", stderrors.New("privacy group not found"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGroupNotFound(tt.err); got != tt.want {
				t.Errorf("IsGroupNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
