package errors

// Error code constants. Errors carry code + params; the reporter renders
// the human-facing text.

// Identity resolution codes.
const (
	CodeResolutionFailed = "RESOLUTION_FAILED"
	CodeIdentityUnknown  = "IDENTITY_UNKNOWN"
)

// Topology codes.
const (
	CodeNodeUnreachable   = "NODE_UNREACHABLE"
	CodeTopologyViolation = "TOPOLOGY_VIOLATION"
)

// Privacy group lifecycle codes.
const (
	CodeGroupCreateFailed   = "GROUP_CREATE_FAILED"
	CodeConfirmationTimeout = "CONFIRMATION_TIMEOUT"
	CodeProbeDeployFailed   = "PROBE_DEPLOY_FAILED"
	CodeGroupNotReady       = "GROUP_NOT_READY"
)

// RPC gateway codes.
const (
	CodeRPCTransport = "RPC_TRANSPORT"
	CodeRPCRejected  = "RPC_REJECTED"
)

// Invocation codes.
const (
	CodeReceiptTimeout = "RECEIPT_TIMEOUT"
)
