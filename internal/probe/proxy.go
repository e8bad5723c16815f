// Package probe issues the actual test calls: mutating store(value) and
// non-mutating retrieve(), scoped to a group, from a given identity.
// The proxy is stateless; it takes the identity's home-node connection
// explicitly and returns a classified outcome, never an unexplained error.
package probe

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"sealcheck.io/sealcheck/internal/domain"
	"sealcheck.io/sealcheck/internal/gateway"
	"sealcheck.io/sealcheck/internal/group"
	"sealcheck.io/sealcheck/internal/pkg/logger"
	"sealcheck.io/sealcheck/internal/topology"
)

// Proxy scopes contract invocations to privacy groups.
type Proxy struct {
	topo            *topology.Topology
	receiptInterval time.Duration
	receiptTimeout  time.Duration
}

// NewProxy creates a Proxy. The receipt bounds drive the commit barrier
// after every successful write.
func NewProxy(topo *topology.Topology, receiptInterval, receiptTimeout time.Duration) *Proxy {
	return &Proxy{
		topo:            topo,
		receiptInterval: receiptInterval,
		receiptTimeout:  receiptTimeout,
	}
}

type groupTransaction struct {
	Domain   string `json:"domain"`
	Group    string `json:"group"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Function string `json:"function,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Write submits store(value) from the identity's home node and holds the
// commit barrier: the write only counts as Success once its receipt
// confirms. Skipping the barrier is the classic source of flaky results in
// ad hoc scripts; it is a correctness requirement here, not an optimization.
func (p *Proxy) Write(ctx context.Context, g *domain.PrivacyGroup, id domain.Identity, value string) domain.Actual {
	client, err := p.topo.Client(id.HomeNode)
	if err != nil {
		return domain.TransportError(err.Error())
	}

	tx := groupTransaction{
		Domain:   g.Domain,
		Group:    g.ID,
		From:     id.Locator(),
		To:       g.ContractAddress,
		Function: group.StoreFunction,
		Data:     value,
	}

	var txID string
	if err := client.Invoke(ctx, "pgroup_sendTransaction", []interface{}{tx}, &txID); err != nil {
		return outcomeFromGatewayError(err)
	}

	rcpt, err := gateway.WaitReceipt(ctx, client, txID, p.receiptInterval, p.receiptTimeout)
	if err != nil {
		if gateway.IsRejected(err) {
			return domain.Denied(err.Error())
		}
		return domain.TransportError("write unconfirmed: " + err.Error())
	}
	if !rcpt.Success {
		if rcpt.Rejected() {
			return domain.Denied(rcpt.FailureMessage)
		}
		return domain.TransportError("write reverted: " + rcpt.FailureMessage)
	}

	logger.Debug("write confirmed",
		zap.String("group", g.Name),
		zap.String("identity", id.Name),
		zap.String("tx", txID),
	)
	return domain.Success("")
}

// Read calls retrieve() from the identity's home node and returns the
// decoded value on success.
func (p *Proxy) Read(ctx context.Context, g *domain.PrivacyGroup, id domain.Identity) domain.Actual {
	client, err := p.topo.Client(id.HomeNode)
	if err != nil {
		return domain.TransportError(err.Error())
	}

	call := groupTransaction{
		Domain:   g.Domain,
		Group:    g.ID,
		From:     id.Locator(),
		To:       g.ContractAddress,
		Function: group.RetrieveFunction,
	}

	var value string
	if err := client.Invoke(ctx, "pgroup_call", []interface{}{call}, &value); err != nil {
		return outcomeFromGatewayError(err)
	}
	return domain.Success(value)
}

// outcomeFromGatewayError maps the gateway's two failure worlds onto the
// outcome model. Anything that is not an explicit rejection stays a
// transport error so it resolves Inconclusive downstream.
func outcomeFromGatewayError(err error) domain.Actual {
	var ge *gateway.Error
	if errors.As(err, &ge) {
		reason := ge.HarnessCode() + ": " + ge.Message
		if ge.Kind == gateway.Rejected {
			return domain.Denied(reason)
		}
		return domain.TransportError(reason)
	}
	return domain.TransportError(err.Error())
}
