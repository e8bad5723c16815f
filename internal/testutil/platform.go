// Package testutil provides an in-process fake of the execution platform's
// JSON-RPC surface. Tests drive the real gateway, group manager, proxy, and
// orchestrator against it, with knobs to simulate confirmation delays,
// authorization breaches, and ambiguous error text.
package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// RPCErr mirrors a JSON-RPC error object on the wire.
type RPCErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type fakeGroup struct {
	id          string
	name        string
	domain      string
	members     []string
	polls       int
	hiddenPolls int
	confirmed   bool
	value       string // last stored probe value
}

type fakeReceipt struct {
	polls           int
	available       bool
	success         bool
	contractAddress string
}

// Platform is an httptest-backed fake node. One Platform is one node; start
// several to model a multi-node topology (state is per-node, which is enough
// for harness-side behavior: each test talks to groups through one home node).
type Platform struct {
	srv *httptest.Server
	mu  sync.Mutex

	groups   map[string]*fakeGroup
	receipts map[string]*fakeReceipt
	seq      int

	// UnknownIdentities makes keymgr_resolveEthAddress fail for these names.
	UnknownIdentities map[string]bool

	// ConfirmAfterPolls delays group confirmation for N pgroup_getGroupById
	// calls. Zero confirms immediately.
	ConfirmAfterPolls int

	// HideGroupPolls answers the first N pgroup_getGroupById lookups per
	// group with a not-found rejection, the way platform versions that
	// hide unconfirmed groups behave during the genesis commit window.
	HideGroupPolls int

	// NeverConfirm keeps every group unconfirmed forever.
	NeverConfirm bool

	// ReceiptAfterPolls delays receipt availability for N
	// ptx_getTransactionReceipt calls. Zero answers immediately.
	ReceiptAfterPolls int

	// SkipReadMembership simulates a read-isolation breach: non-member
	// reads succeed.
	SkipReadMembership bool

	// SkipWriteMembership simulates a write-isolation breach.
	SkipWriteMembership bool

	// DenyIdentities denies these callers even when they are members.
	DenyIdentities map[string]bool

	// AmbiguousErrors replaces denial text with a message outside the
	// harness's denial-phrase table.
	AmbiguousErrors bool

	// ServeValue, when set, overrides the value returned by retrieve for
	// the named group. Used to simulate cross-group leakage.
	ServeValue func(groupName string) (string, bool)
}

// NewPlatform starts a fake node.
func NewPlatform() *Platform {
	p := &Platform{
		groups:            map[string]*fakeGroup{},
		receipts:          map[string]*fakeReceipt{},
		UnknownIdentities: map[string]bool{},
		DenyIdentities:    map[string]bool{},
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.handle))
	return p
}

// URL returns the node endpoint.
func (p *Platform) URL() string { return p.srv.URL }

// Close shuts the fake node down.
func (p *Platform) Close() { p.srv.Close() }

// GroupValue returns the last value stored in a group's probe contract.
func (p *Platform) GroupValue(groupID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.groups[groupID]; ok {
		return g.value
	}
	return ""
}

// AddressFor returns the deterministic address the fake derives for a name.
func AddressFor(name string) string {
	sum := sha256.Sum256([]byte(name))
	return "0x" + hex.EncodeToString(sum[:])[:40]
}

func (p *Platform) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     int64             `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	result, rpcErr := p.dispatch(req.Method, req.Params)
	p.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (p *Platform) dispatch(method string, params []json.RawMessage) (interface{}, *RPCErr) {
	switch method {
	case "keymgr_resolveEthAddress":
		return p.resolveAddress(params)
	case "pgroup_createGroup":
		return p.createGroup(params)
	case "pgroup_getGroupById":
		return p.getGroup(params)
	case "pgroup_sendTransaction":
		return p.sendTransaction(params)
	case "pgroup_call":
		return p.call(params)
	case "ptx_getTransactionReceipt":
		return p.getReceipt(params)
	default:
		return nil, &RPCErr{Code: -32601, Message: "method not found: " + method}
	}
}

func (p *Platform) resolveAddress(params []json.RawMessage) (interface{}, *RPCErr) {
	var name string
	if err := json.Unmarshal(params[0], &name); err != nil {
		return nil, &RPCErr{Code: -32602, Message: "invalid params"}
	}
	if p.UnknownIdentities[name] {
		return nil, &RPCErr{Code: -32000, Message: "no key material for identifier " + name}
	}
	return AddressFor(name), nil
}

type createGroupParams struct {
	Domain  string   `json:"domain"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

func (p *Platform) createGroup(params []json.RawMessage) (interface{}, *RPCErr) {
	var in createGroupParams
	if err := json.Unmarshal(params[0], &in); err != nil {
		return nil, &RPCErr{Code: -32602, Message: "invalid params"}
	}
	if len(in.Members) == 0 {
		return nil, &RPCErr{Code: -32000, Message: "group requires at least one member"}
	}

	p.seq++
	g := &fakeGroup{
		id:      fmt.Sprintf("0xgroup%04d", p.seq),
		name:    in.Name,
		domain:  in.Domain,
		members: in.Members,
	}
	p.groups[g.id] = g

	return map[string]interface{}{
		"id":                 g.id,
		"genesisTransaction": fmt.Sprintf("0xgen%04d", p.seq),
	}, nil
}

func (p *Platform) getGroup(params []json.RawMessage) (interface{}, *RPCErr) {
	var dom, id string
	_ = json.Unmarshal(params[0], &dom)
	if err := json.Unmarshal(params[1], &id); err != nil {
		return nil, &RPCErr{Code: -32602, Message: "invalid params"}
	}
	g, ok := p.groups[id]
	if !ok {
		return nil, &RPCErr{Code: -32000, Message: "privacy group not found: " + id}
	}

	if g.hiddenPolls < p.HideGroupPolls {
		g.hiddenPolls++
		return nil, &RPCErr{Code: -32000, Message: "privacy group not found: " + id}
	}

	g.polls++
	if !p.NeverConfirm && g.polls > p.ConfirmAfterPolls {
		g.confirmed = true
	}

	out := map[string]interface{}{"id": g.id, "name": g.name}
	if g.confirmed {
		out["contractAddress"] = "0xgenesis" + g.id[2:]
	}
	return out, nil
}

type sendTxParams struct {
	Domain   string `json:"domain"`
	Group    string `json:"group"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Bytecode string `json:"bytecode,omitempty"`
	Function string `json:"function,omitempty"`
	Data     string `json:"data,omitempty"`
}

func (p *Platform) denial() *RPCErr {
	if p.AmbiguousErrors {
		return &RPCErr{Code: -32000, Message: "execution reverted"}
	}
	return &RPCErr{Code: -32000, Message: "sender is not a member of privacy group"}
}

func (p *Platform) sendTransaction(params []json.RawMessage) (interface{}, *RPCErr) {
	var in sendTxParams
	if err := json.Unmarshal(params[0], &in); err != nil {
		return nil, &RPCErr{Code: -32602, Message: "invalid params"}
	}
	g, ok := p.groups[in.Group]
	if !ok {
		return nil, &RPCErr{Code: -32000, Message: "privacy group not found: " + in.Group}
	}

	if p.DenyIdentities[in.From] {
		return nil, p.denial()
	}
	if !p.SkipWriteMembership && !contains(g.members, in.From) {
		return nil, p.denial()
	}

	p.seq++
	txID := fmt.Sprintf("0xtx%04d", p.seq)
	rcpt := &fakeReceipt{success: true}
	if in.To == "" {
		// deploy
		rcpt.contractAddress = fmt.Sprintf("0xprobe%04d", p.seq)
	} else {
		g.value = in.Data
	}
	p.receipts[txID] = rcpt
	return txID, nil
}

type callParams struct {
	Domain   string `json:"domain"`
	Group    string `json:"group"`
	From     string `json:"from"`
	To       string `json:"to"`
	Function string `json:"function"`
}

func (p *Platform) call(params []json.RawMessage) (interface{}, *RPCErr) {
	var in callParams
	if err := json.Unmarshal(params[0], &in); err != nil {
		return nil, &RPCErr{Code: -32602, Message: "invalid params"}
	}
	g, ok := p.groups[in.Group]
	if !ok {
		return nil, &RPCErr{Code: -32000, Message: "privacy group not found: " + in.Group}
	}

	if p.DenyIdentities[in.From] {
		return nil, p.denial()
	}
	if !p.SkipReadMembership && !contains(g.members, in.From) {
		return nil, p.denial()
	}

	if p.ServeValue != nil {
		if v, ok := p.ServeValue(g.name); ok {
			return v, nil
		}
	}
	return g.value, nil
}

func (p *Platform) getReceipt(params []json.RawMessage) (interface{}, *RPCErr) {
	var txID string
	if err := json.Unmarshal(params[0], &txID); err != nil {
		return nil, &RPCErr{Code: -32602, Message: "invalid params"}
	}
	rcpt, ok := p.receipts[txID]
	if !ok {
		return nil, &RPCErr{Code: -32000, Message: "transaction not found: " + txID}
	}

	rcpt.polls++
	if rcpt.polls <= p.ReceiptAfterPolls {
		return nil, nil // receipt not yet available
	}
	rcpt.available = true

	out := map[string]interface{}{"transactionHash": txID, "success": rcpt.success}
	if rcpt.contractAddress != "" {
		out["contractAddress"] = rcpt.contractAddress
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
