package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealcheck.io/sealcheck/internal/domain"
)

func testNode(endpoint string) domain.Node {
	return domain.Node{ID: "node1", Endpoint: endpoint, Reachable: true}
}

func rpcHandler(t *testing.T, fn func(method string, params []json.RawMessage) (interface{}, *rpcError)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64             `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := fn(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestClient_Invoke_Success(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "keymgr_resolveEthAddress", method)
		return "0x1234", nil
	}))
	defer srv.Close()

	c := NewClient(testNode(srv.URL), 5*time.Second)

	var addr string
	err := c.Invoke(context.Background(), "keymgr_resolveEthAddress", []interface{}{"alice"}, &addr)
	require.NoError(t, err)
	assert.Equal(t, "0x1234", addr)
}

func TestClient_Invoke_RejectedNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(rpcHandler(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		calls.Add(1)
		return nil, &rpcError{Code: -32000, Message: "PD012345: sender is not a member of privacy group"}
	}))
	defer srv.Close()

	c := NewClient(testNode(srv.URL), 5*time.Second)

	err := c.Invoke(context.Background(), "pgroup_call", nil, nil)
	require.Error(t, err)
	assert.True(t, IsRejected(err), "denial text must classify as Rejected, got %v", err)
	assert.Equal(t, int32(1), calls.Load(), "rejections must never be retried")
}

func TestClient_Invoke_TransportRetriedOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testNode(srv.URL), 5*time.Second)

	err := c.Invoke(context.Background(), "pgroup_call", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, int32(2), calls.Load(), "transport faults get exactly one retry")
}

func TestClient_Invoke_TransportRecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		rpcHandler(t, func(string, []json.RawMessage) (interface{}, *rpcError) {
			return "ok", nil
		})(w, r)
	}))
	defer srv.Close()

	c := NewClient(testNode(srv.URL), 5*time.Second)

	var out string
	err := c.Invoke(context.Background(), "ptx_getTransactionReceipt", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Invoke_UnknownErrorTextIsTransport(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(string, []json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32603, Message: "PD010101: internal flush error"}
	}))
	defer srv.Close()

	c := NewClient(testNode(srv.URL), 5*time.Second)

	err := c.Invoke(context.Background(), "pgroup_call", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err),
		"unrecognized error text must stay Transport so the case resolves Inconclusive")
}

func TestClient_Invoke_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse everything

	c := NewClient(testNode(srv.URL), time.Second)

	err := c.Invoke(context.Background(), "pgroup_call", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestClient_Invoke_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewClient(testNode(srv.URL), time.Second)

	err := c.Invoke(context.Background(), "pgroup_call", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestError_Error(t *testing.T) {
	e := &Error{Kind: Rejected, Code: -32000, Message: "no"}
	assert.Contains(t, e.Error(), "rejected")
	assert.Contains(t, e.Error(), "-32000")

	e2 := &Error{Kind: Transport, Message: "dial tcp"}
	assert.Contains(t, e2.Error(), "transport")
}
