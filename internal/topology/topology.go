// Package topology tracks the static set of execution nodes and their
// reachability. Nodes come from configuration and are immutable for a run;
// only the reachable flag is settled here, once, during Connect.
package topology

import (
	"context"
	"net"
	"net/url"
	"time"

	"go.uber.org/zap"

	"sealcheck.io/sealcheck/internal/domain"
	"sealcheck.io/sealcheck/internal/gateway"
	"sealcheck.io/sealcheck/internal/pkg/errors"
	"sealcheck.io/sealcheck/internal/pkg/logger"
)

// DefaultConnectTimeout bounds the reachability probe per node.
const DefaultConnectTimeout = 5 * time.Second

// Topology is the set of reachable execution endpoints. Connection handles
// are shared read-only across identities homed on the same node.
type Topology struct {
	nodes   map[string]*domain.Node
	clients map[string]*gateway.Client

	connectTimeout time.Duration
	requestTimeout time.Duration
}

// New builds a topology from static node configuration.
func New(nodes []domain.Node, connectTimeout, requestTimeout time.Duration) *Topology {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	t := &Topology{
		nodes:          make(map[string]*domain.Node, len(nodes)),
		clients:        make(map[string]*gateway.Client, len(nodes)),
		connectTimeout: connectTimeout,
		requestTimeout: requestTimeout,
	}
	for i := range nodes {
		n := nodes[i]
		t.nodes[n.ID] = &n
	}
	return t
}

// Connect probes every node and builds a gateway client for each reachable
// one. Unreachable nodes are recorded, not fatal: groups naming their
// identities fail fast later instead of hanging in Creating forever.
func (t *Topology) Connect(ctx context.Context) {
	for _, n := range t.nodes {
		if err := t.probe(ctx, n); err != nil {
			n.Reachable = false
			logger.Warn("node unreachable",
				zap.String("node", n.ID),
				zap.String("endpoint", n.Endpoint),
				zap.Error(err),
			)
			continue
		}
		n.Reachable = true
		t.clients[n.ID] = gateway.NewClient(*n, t.requestTimeout)
		logger.Info("node connected", zap.String("node", n.ID))
	}
}

// probe checks TCP reachability of the node's endpoint within the connect
// timeout. A full RPC handshake is deliberately not required here; the
// gateway classifies per-request failures itself.
func (t *Topology) probe(ctx context.Context, n *domain.Node) error {
	u, err := url.Parse(n.Endpoint)
	if err != nil {
		return errors.Wrap(err, errors.CodeNodeUnreachable, "invalid endpoint", errors.ScopeGroup)
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(u.Hostname(), "443")
		default:
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	d := net.Dialer{Timeout: t.connectTimeout}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return errors.Wrap(err, errors.CodeNodeUnreachable, "dial "+host, errors.ScopeGroup)
	}
	return conn.Close()
}

// Node returns the node by id.
func (t *Topology) Node(id string) (*domain.Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, errors.Wrap(errors.ErrNotFound, errors.CodeNodeUnreachable, "unknown node "+id, errors.ScopeRun)
	}
	return n, nil
}

// Nodes returns all configured nodes.
func (t *Topology) Nodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	return out
}

// Client returns the connection handle for a node. Fails with
// NODE_UNREACHABLE if the node never passed its reachability probe.
func (t *Topology) Client(nodeID string) (*gateway.Client, error) {
	n, err := t.Node(nodeID)
	if err != nil {
		return nil, err
	}
	if !n.Reachable {
		return nil, errors.Wrap(errors.ErrUnreachable, errors.CodeNodeUnreachable,
			"node "+nodeID+" failed its reachability probe", errors.ScopeGroup)
	}
	return t.clients[nodeID], nil
}

// CheckMembers fails fast with TOPOLOGY_VIOLATION when any member identity
// is homed on an unreachable node. Creating such a group would silently
// produce one that can never reach Ready.
func (t *Topology) CheckMembers(members []domain.Identity) error {
	for _, m := range members {
		n, err := t.Node(m.HomeNode)
		if err != nil {
			return errors.Wrap(err, errors.CodeTopologyViolation,
				"member "+m.Name+" names unknown node "+m.HomeNode, errors.ScopeGroup)
		}
		if !n.Reachable {
			return errors.New(errors.CodeTopologyViolation,
				"member "+m.Name+" is homed on unreachable node "+m.HomeNode, errors.ScopeGroup)
		}
	}
	return nil
}
