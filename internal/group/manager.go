// Package group manages privacy group lifecycle: creation, confirmation
// polling, and probe contract deployment. Groups transition
// Creating → Ready (or Failed) and are never torn down within a run; the
// point is repeated probing of a live isolation boundary.
package group

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sealcheck.io/sealcheck/internal/domain"
	"sealcheck.io/sealcheck/internal/gateway"
	"sealcheck.io/sealcheck/internal/pkg/errors"
	"sealcheck.io/sealcheck/internal/pkg/logger"
	"sealcheck.io/sealcheck/internal/topology"
)

// Timeouts bounds the manager's poll loops.
type Timeouts struct {
	PollInterval    time.Duration // confirmation poll cadence, ~1-3s
	ReadyTimeout    time.Duration // total bound on Creating → Ready
	ReceiptInterval time.Duration
	ReceiptTimeout  time.Duration
}

// DefaultTimeouts returns the manager's default poll bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PollInterval:    2 * time.Second,
		ReadyTimeout:    45 * time.Second,
		ReceiptInterval: time.Second,
		ReceiptTimeout:  30 * time.Second,
	}
}

// Manager creates and confirms privacy groups on the platform.
type Manager struct {
	topo       *topology.Topology
	domainName string
	timeouts   Timeouts

	// members maps group id to the resolved member identities, in creation
	// order. The first member acts as probe deployer.
	members map[string][]domain.Identity
}

// NewManager creates a Manager for the given platform domain.
func NewManager(topo *topology.Topology, domainName string, timeouts Timeouts) *Manager {
	return &Manager{
		topo:       topo,
		domainName: domainName,
		timeouts:   timeouts,
		members:    make(map[string][]domain.Identity),
	}
}

type createGroupRequest struct {
	Domain  string   `json:"domain"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type createGroupResponse struct {
	ID                 string `json:"id"`
	GenesisTransaction string `json:"genesisTransaction"`
}

// Create submits a group-creation request naming every member's resolved
// locator. The member list is fixed for the group's lifetime. Fails fast
// with TOPOLOGY_VIOLATION when a member is homed on an unreachable node.
func (m *Manager) Create(ctx context.Context, name string, members []domain.Identity) (*domain.PrivacyGroup, error) {
	if len(members) == 0 {
		return nil, errors.New(errors.CodeGroupCreateFailed, "group "+name+" has no members", errors.ScopeGroup)
	}
	if err := m.topo.CheckMembers(members); err != nil {
		return nil, err
	}

	client, err := m.topo.Client(members[0].HomeNode)
	if err != nil {
		return nil, err
	}

	locators := make([]string, len(members))
	memberNames := make([]string, len(members))
	for i, id := range members {
		locators[i] = id.Locator()
		memberNames[i] = id.Name
	}

	var resp createGroupResponse
	req := createGroupRequest{Domain: m.domainName, Name: name, Members: locators}
	if err := client.Invoke(ctx, "pgroup_createGroup", []interface{}{req}, &resp); err != nil {
		return nil, errors.Wrap(err, errors.CodeGroupCreateFailed, "create group "+name, errors.ScopeGroup)
	}

	g := &domain.PrivacyGroup{
		ID:        resp.ID,
		Name:      name,
		Domain:    m.domainName,
		Members:   memberNames,
		Status:    domain.GroupCreating,
		GenesisTx: resp.GenesisTransaction,
	}
	m.members[g.ID] = members

	logger.Info("privacy group created",
		zap.String("group", name),
		zap.String("id", g.ID),
		zap.Strings("members", locators),
	)
	return g, nil
}

type groupStatusResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

// AwaitReady polls until the group's genesis is confirmed, then deploys the
// probe contract. Either step failing marks the group Failed; a Failed
// group is excluded from the test matrix, never treated as a breach.
func (m *Manager) AwaitReady(ctx context.Context, g *domain.PrivacyGroup) error {
	members := m.members[g.ID]
	if len(members) == 0 {
		return errors.New(errors.CodeGroupNotReady, "group "+g.Name+" is not managed here", errors.ScopeGroup)
	}
	client, err := m.topo.Client(members[0].HomeNode)
	if err != nil {
		g.Status = domain.GroupFailed
		return err
	}

	if err := m.awaitConfirmed(ctx, client, g); err != nil {
		g.Status = domain.GroupFailed
		return err
	}

	addr, err := m.DeployProbe(ctx, g, members[0])
	if err != nil {
		g.Status = domain.GroupFailed
		return err
	}

	g.ContractAddress = addr
	g.Status = domain.GroupReady
	logger.Info("privacy group ready",
		zap.String("group", g.Name),
		zap.String("probe_contract", addr),
	)
	return nil
}

func (m *Manager) awaitConfirmed(ctx context.Context, client *gateway.Client, g *domain.PrivacyGroup) error {
	deadline := time.NewTimer(m.timeouts.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(m.timeouts.PollInterval)
	defer tick.Stop()

	for {
		var status groupStatusResponse
		err := client.Invoke(ctx, "pgroup_getGroupById", []interface{}{m.domainName, g.ID}, &status)
		if err == nil && status.ContractAddress != "" {
			return nil
		}
		if err != nil && gateway.IsRejected(err) && !gateway.IsGroupNotFound(err) {
			// The node refuses to show us our own group: no amount of
			// polling fixes that. Not-found is exempt, the group stays
			// invisible until its genesis commits on some platform
			// versions, so keep polling it to the deadline.
			return errors.Wrap(err, errors.CodeConfirmationTimeout, "group "+g.Name+" lookup rejected", errors.ScopeGroup)
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.CodeConfirmationTimeout,
				"context cancelled awaiting group "+g.Name, errors.ScopeGroup)
		case <-deadline.C:
			return errors.Wrap(errors.ErrTimeout, errors.CodeConfirmationTimeout,
				"group "+g.Name+" not confirmed within "+m.timeouts.ReadyTimeout.String(), errors.ScopeGroup)
		case <-tick.C:
		}
	}
}

type sendTransactionRequest struct {
	Domain   string `json:"domain"`
	Group    string `json:"group"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Bytecode string `json:"bytecode,omitempty"`
	Function string `json:"function,omitempty"`
	Data     string `json:"data,omitempty"`
}

// DeployProbe deploys the probe contract into the group from a member
// identity. The contract exposes exactly store(value) and retrieve():
// the minimal surface that distinguishes write-deny from read-deny.
func (m *Manager) DeployProbe(ctx context.Context, g *domain.PrivacyGroup, deployer domain.Identity) (string, error) {
	client, err := m.topo.Client(deployer.HomeNode)
	if err != nil {
		return "", err
	}

	var txID string
	req := sendTransactionRequest{
		Domain:   g.Domain,
		Group:    g.ID,
		From:     deployer.Locator(),
		Bytecode: probeBytecode,
	}
	if err := client.Invoke(ctx, "pgroup_sendTransaction", []interface{}{req}, &txID); err != nil {
		return "", errors.Wrap(err, errors.CodeProbeDeployFailed,
			"deploy probe into "+g.Name, errors.ScopeGroup)
	}

	rcpt, err := gateway.WaitReceipt(ctx, client, txID, m.timeouts.ReceiptInterval, m.timeouts.ReceiptTimeout)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeProbeDeployFailed,
			"probe deployment unconfirmed for "+g.Name, errors.ScopeGroup)
	}
	if !rcpt.Success || rcpt.ContractAddress == "" {
		return "", errors.New(errors.CodeProbeDeployFailed,
			"probe deployment reverted for "+g.Name+": "+rcpt.FailureMessage, errors.ScopeGroup)
	}
	return rcpt.ContractAddress, nil
}

// Deployer returns the member identity that deployed (or would deploy) the
// group's probe contract.
func (m *Manager) Deployer(g *domain.PrivacyGroup) (domain.Identity, error) {
	members := m.members[g.ID]
	if len(members) == 0 {
		return domain.Identity{}, errors.New(errors.CodeGroupNotReady,
			"group "+g.Name+" is not managed here", errors.ScopeGroup)
	}
	return members[0], nil
}
