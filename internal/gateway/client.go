// Package gateway provides the JSON-RPC boundary to the execution platform.
//
// The single most important job of this package is keeping two failure
// worlds apart: Transport (the network or the node failed, nothing can be
// concluded) and Rejected (the node understood the request and explicitly
// refused it). Conflating the two corrupts every downstream classification.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"sealcheck.io/sealcheck/internal/domain"
	"sealcheck.io/sealcheck/internal/pkg/errors"
	"sealcheck.io/sealcheck/internal/pkg/logger"
)

// Kind distinguishes the two failure worlds.
type Kind int

const (
	// Transport: connection failure, timeout, or malformed response.
	// Downstream this resolves to Inconclusive, never to Denied.
	Transport Kind = iota
	// Rejected: the endpoint processed the request and refused it.
	// Authoritative; never retried.
	Rejected
)

// String returns the kind name for logs.
func (k Kind) String() string {
	if k == Rejected {
		return "rejected"
	}
	return "transport"
}

// Error is the typed outcome of a failed invoke.
type Error struct {
	Kind    Kind
	Code    int // JSON-RPC error code when present, 0 for transport faults
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc %s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("rpc %s: %s", e.Kind, e.Message)
}

// HarnessCode maps the failure world onto the harness error taxonomy.
func (e *Error) HarnessCode() string {
	if e.Kind == Rejected {
		return errors.CodeRPCRejected
	}
	return errors.CodeRPCTransport
}

// IsRejected reports whether err is a gateway rejection.
func IsRejected(err error) bool {
	ge, ok := err.(*Error)
	return ok && ge.Kind == Rejected
}

// IsTransport reports whether err is a gateway transport fault.
func IsTransport(err error) bool {
	ge, ok := err.(*Error)
	return ok && ge.Kind == Transport
}

// Client issues JSON-RPC 2.0 requests to one node.
// Safe for concurrent use; test logic never mutates connection state, so
// one client per node is shared across all identities homed there.
type Client struct {
	nodeID  string
	baseURL string
	client  *http.Client
	reqID   atomic.Int64

	// maxElapsed bounds the single transport retry.
	maxElapsed time.Duration
}

// NewClient creates a client for the given node.
func NewClient(node domain.Node, timeout time.Duration) *Client {
	return &Client{
		nodeID:  node.ID,
		baseURL: node.Endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
		maxElapsed: timeout,
	}
}

// NodeID returns the id of the node this client talks to.
func (c *Client) NodeID() string {
	return c.nodeID
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Invoke calls method with params and unmarshals the result into result
// (which may be nil to discard). Transport faults are retried exactly once
// with backoff; rejections are returned as-is on first sight, since a retry
// could mask an intermittent success and convert a breach into a false pass.
func (c *Client) Invoke(ctx context.Context, method string, params []interface{}, result interface{}) error {
	var lastErr error
	attempts := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = c.maxElapsed

	operation := func() error {
		attempts++
		err := c.do(ctx, method, params, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if IsTransport(err) && attempts <= 1 {
			logger.Debug("transport fault, retrying once",
				zap.String("node", c.nodeID),
				zap.String("method", method),
				zap.Error(err),
			)
			return err // retryable
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return lastErr
	}
	return nil
}

// do performs a single JSON-RPC round trip.
func (c *Client) do(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return &Error{Kind: Transport, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: Transport, Message: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return &Error{Kind: Transport, Message: fmt.Sprintf("post %s: %v", c.baseURL, err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &Error{Kind: Transport, Message: fmt.Sprintf("read response: %v", err)}
	}

	if httpResp.StatusCode >= 500 {
		return &Error{Kind: Transport, Message: fmt.Sprintf("server status %d", httpResp.StatusCode)}
	}

	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return &Error{Kind: Transport, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if resp.Error != nil {
		return classify(resp.Error)
	}

	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return &Error{Kind: Transport, Message: fmt.Sprintf("decode result: %v", err)}
		}
	}
	return nil
}

// classify maps a JSON-RPC error object onto the Transport/Rejected split.
// Where the node emits no structured code, only a free-text message, the
// denial-phrase table decides; anything unrecognized stays Transport so the
// harness reports Inconclusive instead of asserting a classification it
// cannot justify.
func classify(e *rpcError) *Error {
	if isDenialMessage(e.Message) {
		return &Error{Kind: Rejected, Code: e.Code, Message: e.Message}
	}
	return &Error{Kind: Transport, Code: e.Code, Message: e.Message}
}
