// Package identity resolves symbolic identity names to node affiliation
// and address. Resolution happens once at harness start; a failure here is
// fatal to the run, since every later expected-vs-actual comparison is
// meaningless without a ground-truth address.
package identity

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"sealcheck.io/sealcheck/internal/domain"
	"sealcheck.io/sealcheck/internal/pkg/errors"
	"sealcheck.io/sealcheck/internal/pkg/logger"
	"sealcheck.io/sealcheck/internal/topology"
)

// Registry holds the resolved identity universe for one run.
type Registry struct {
	topo       *topology.Topology
	identities map[string]domain.Identity
}

// NewRegistry creates an empty registry over the given topology.
func NewRegistry(topo *topology.Topology) *Registry {
	return &Registry{
		topo:       topo,
		identities: make(map[string]domain.Identity),
	}
}

// Resolve resolves one symbolic name against its home node. No retries:
// either the node can produce a signing handle and address for the name,
// or the run aborts.
func (r *Registry) Resolve(ctx context.Context, name, nodeID string) (domain.Identity, error) {
	client, err := r.topo.Client(nodeID)
	if err != nil {
		return domain.Identity{}, errors.Wrap(err, errors.CodeResolutionFailed,
			"cannot resolve "+name+" on "+nodeID, errors.ScopeRun)
	}

	var address string
	if err := client.Invoke(ctx, "keymgr_resolveEthAddress", []interface{}{name}, &address); err != nil {
		return domain.Identity{}, errors.Wrap(err, errors.CodeResolutionFailed,
			"node "+nodeID+" cannot produce an address for "+name, errors.ScopeRun)
	}
	if address == "" {
		return domain.Identity{}, errors.New(errors.CodeResolutionFailed,
			"node "+nodeID+" returned an empty address for "+name, errors.ScopeRun)
	}

	id := domain.Identity{
		Name:          name,
		HomeNode:      nodeID,
		Address:       address,
		SigningHandle: name,
	}
	r.identities[name] = id

	logger.Debug("identity resolved",
		zap.String("identity", name),
		zap.String("node", nodeID),
		zap.String("address", address),
	)
	return id, nil
}

// ResolveAll resolves every name→node assignment, failing on the first
// resolution error.
func (r *Registry) ResolveAll(ctx context.Context, assignments map[string]string) error {
	// Deterministic order keeps logs and failures reproducible.
	names := make([]string, 0, len(assignments))
	for name := range assignments {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := r.Resolve(ctx, name, assignments[name]); err != nil {
			return err
		}
	}
	return nil
}

// Identity returns a previously resolved identity by name.
func (r *Registry) Identity(name string) (domain.Identity, error) {
	id, ok := r.identities[name]
	if !ok {
		return domain.Identity{}, errors.New(errors.CodeIdentityUnknown,
			"identity "+name+" was never resolved", errors.ScopeRun)
	}
	return id, nil
}

// Universe returns every resolved identity, sorted by name. This is the
// full set probed against every group, members and non-members alike.
func (r *Registry) Universe() []domain.Identity {
	out := make([]domain.Identity, 0, len(r.identities))
	for _, id := range r.identities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
