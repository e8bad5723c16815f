// Package oracle computes the expected authorization decision for a test
// case. It is the ground truth the platform is checked against: a pure
// function over declared membership, no I/O, and it must never be derived
// by querying the platform itself, since that would make the oracle and the
// system-under-test the same thing.
package oracle

import "sealcheck.io/sealcheck/internal/domain"

// Oracle maps (group, identity, operation) to the expected decision.
type Oracle struct{}

// New creates an Oracle.
func New() *Oracle {
	return &Oracle{}
}

// Expect returns Allow iff the identity is a declared member of the group,
// uniformly for both operations. Whether same-node non-members "should" be
// blocked by the platform or by a layer above it is the platform's
// ambiguity to own; the declared membership is ground truth here and any
// divergence is reported.
func (o *Oracle) Expect(g *domain.PrivacyGroup, id domain.Identity, op domain.Operation) domain.Expected {
	if g.HasMember(id.Name) {
		return domain.Allow
	}
	return domain.Deny
}
