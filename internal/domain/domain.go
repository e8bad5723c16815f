// Package domain provides the data model for sealcheck.
//
// All components exchange these types, NOT platform wire types
// (Anti-Corruption Layer): the gateway translates the JSON-RPC surface
// into this model at the boundary.
package domain

// Node is one reachable execution endpoint of the platform under test.
// Nodes are created from static configuration and immutable for a run.
type Node struct {
	ID        string `json:"id"`
	Endpoint  string `json:"endpoint"`
	Reachable bool   `json:"reachable"`
}

// Identity is a cryptographic identity hosted on a node. Resolved once per
// run against its home node and immutable afterwards. Distinct identities
// may share a home node.
type Identity struct {
	Name          string `json:"name"`
	HomeNode      string `json:"home_node"`
	Address       string `json:"address"`
	SigningHandle string `json:"signing_handle"`
}

// Locator is the fully-qualified identity name the platform expects for
// group membership, e.g. "alice@node1".
func (i Identity) Locator() string {
	return i.Name + "@" + i.HomeNode
}

// GroupStatus is the lifecycle state of a privacy group.
type GroupStatus string

const (
	GroupCreating GroupStatus = "CREATING" // creation submitted, not yet confirmed
	GroupReady    GroupStatus = "READY"    // confirmed and probe contract deployed
	GroupFailed   GroupStatus = "FAILED"   // confirmation or deployment failed (terminal)
)

// PrivacyGroup is a scoped execution context with a fixed member list.
// Membership never changes after creation; a membership change means
// creating a new group.
type PrivacyGroup struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Domain          string      `json:"domain"`
	Members         []string    `json:"members"`
	ContractAddress string      `json:"contract_address,omitempty"`
	Status          GroupStatus `json:"status"`
	GenesisTx       string      `json:"genesis_tx,omitempty"`
}

// HasMember reports whether the named identity is a declared member.
func (g *PrivacyGroup) HasMember(identityName string) bool {
	for _, m := range g.Members {
		if m == identityName {
			return true
		}
	}
	return false
}

// Testable reports whether the group is eligible for the test matrix:
// Ready with exactly one deployed probe contract.
func (g *PrivacyGroup) Testable() bool {
	return g.Status == GroupReady && g.ContractAddress != ""
}

// Operation is the kind of contract call issued by a test case.
type Operation string

const (
	OpWrite Operation = "WRITE" // mutating store(value)
	OpRead  Operation = "READ"  // non-mutating retrieve()
)

// Expected is the oracle's ground-truth decision for a test case.
type Expected string

const (
	Allow Expected = "ALLOW"
	Deny  Expected = "DENY"
)

// ActualKind tags the observed outcome of a contract call.
type ActualKind string

const (
	// ActualSuccess: the platform accepted the call and returned a result.
	ActualSuccess ActualKind = "SUCCESS"
	// ActualDenied: the platform understood the call and explicitly refused it.
	ActualDenied ActualKind = "DENIED"
	// ActualTransport: the call never got a classifiable answer.
	ActualTransport ActualKind = "TRANSPORT_ERROR"
)

// Actual is the observed outcome of a contract call.
type Actual struct {
	Kind   ActualKind `json:"kind"`
	Value  string     `json:"value,omitempty"`  // decoded result for reads
	Reason string     `json:"reason,omitempty"` // denial or transport detail
}

// Success builds a successful outcome carrying an optional decoded value.
func Success(value string) Actual {
	return Actual{Kind: ActualSuccess, Value: value}
}

// Denied builds an explicit-denial outcome.
func Denied(reason string) Actual {
	return Actual{Kind: ActualDenied, Reason: reason}
}

// TransportError builds an unclassifiable-failure outcome.
func TransportError(reason string) Actual {
	return Actual{Kind: ActualTransport, Reason: reason}
}

// Classification is the verdict on one test case.
type Classification string

const (
	Pass Classification = "PASS"
	// UnexpectedDenial: an authorized identity was refused.
	UnexpectedDenial Classification = "UNEXPECTED_DENIAL"
	// Breach: a non-member's call succeeded. Reserved exclusively for
	// expected=Deny with actual=Success; the one outcome this harness
	// exists to catch.
	Breach Classification = "BREACH"
	// Inconclusive: transport failure or unclassifiable error; blocks a
	// "verified secure" conclusion, never counted as a pass.
	Inconclusive Classification = "INCONCLUSIVE"
)

// TestCase is one cell of the {group} x {identity} x {operation} matrix.
type TestCase struct {
	GroupID        string         `json:"group_id"`
	GroupName      string         `json:"group_name"`
	Identity       string         `json:"identity"`
	Operation      Operation      `json:"operation"`
	Expected       Expected       `json:"expected"`
	Actual         Actual         `json:"actual"`
	Classification Classification `json:"classification"`
	// Detail carries supplementary findings, e.g. cross-group leakage.
	Detail string `json:"detail,omitempty"`
}
