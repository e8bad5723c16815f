package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sealcheck.io/sealcheck/internal/domain"
)

func TestExpect(t *testing.T) {
	o := New()
	g := &domain.PrivacyGroup{
		Name:    "alpha",
		Members: []string{"alice", "bob"},
	}

	tests := []struct {
		name     string
		identity string
		op       domain.Operation
		want     domain.Expected
	}{
		{"member write", "alice", domain.OpWrite, domain.Allow},
		{"member read", "bob", domain.OpRead, domain.Allow},
		{"non-member write", "charlie", domain.OpWrite, domain.Deny},
		{"non-member read", "charlie", domain.OpRead, domain.Deny},
		{"empty name", "", domain.OpRead, domain.Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := o.Expect(g, domain.Identity{Name: tt.identity}, tt.op)
			assert.Equal(t, tt.want, got)
		})
	}
}

// The oracle must depend only on declared membership, not on which node the
// identity is homed on. Same-node non-members are still expected Deny.
func TestExpect_IgnoresNodeAffinity(t *testing.T) {
	o := New()
	g := &domain.PrivacyGroup{Name: "alpha", Members: []string{"alice"}}

	sameNode := domain.Identity{Name: "eve", HomeNode: "node1"}
	otherNode := domain.Identity{Name: "eve", HomeNode: "node2"}

	assert.Equal(t, domain.Deny, o.Expect(g, sameNode, domain.OpRead))
	assert.Equal(t, domain.Deny, o.Expect(g, otherNode, domain.OpRead))
}
