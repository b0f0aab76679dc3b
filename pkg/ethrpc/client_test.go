package ethrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ethwatch/pkg/errno"
	"ethwatch/pkg/ratelimit"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type respError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// newTestServer runs a single-method JSON-RPC endpoint. The handler decides
// the result (marshaled as-is) or an error object per request.
func newTestServer(t *testing.T, handler func(req rpcRequest) (any, *respError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rerr := handler(req)

		raw, err := json.Marshal(result)
		require.NoError(t, err)

		resp := struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Result  json.RawMessage `json:"result"`
			Error   *respError      `json:"error,omitempty"`
		}{JSONRPC: "2.0", ID: req.ID, Result: raw, Error: rerr}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testClient(t *testing.T, srv *httptest.Server, retry RetryPolicy) *Client {
	t.Helper()
	c, err := Dial(context.Background(), srv.URL, ratelimit.New(1000), Options{
		CallTimeout: 2 * time.Second,
		DialTimeout: 2 * time.Second,
		Retry:       retry,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestDialProbesEndpoint(t *testing.T) {
	var probed atomic.Bool
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		if req.Method == "eth_blockNumber" {
			probed.Store(true)
			return "0x10", nil
		}
		return nil, &respError{Code: -32601, Message: "method not found"}
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{})
	assert.True(t, probed.Load(), "Dial must probe the endpoint")
	assert.Equal(t, srv.URL, c.Endpoint())
}

func TestDialFailsOnDeadEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Dial(context.Background(), url, ratelimit.New(10), Options{
		DialTimeout: time.Second,
	})
	require.Error(t, err)
}

func TestCallRetriesRateLimitThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		if req.Method == "eth_blockNumber" {
			return "0x10", nil
		}
		if calls.Add(1) <= 2 {
			return nil, &respError{Code: -32046, Message: "Cannot fulfill request"}
		}
		return "0x2a", nil
	})
	defer srv.Close()

	base := 10 * time.Millisecond
	c := testClient(t, srv, RetryPolicy{BaseDelay: base, MaxDelay: time.Second, MaxAttempts: 5})

	start := time.Now()
	var out string
	require.NoError(t, c.call(context.Background(), &out, "eth_chainId"))
	elapsed := time.Since(start)

	assert.Equal(t, "0x2a", out)
	assert.Equal(t, int32(3), calls.Load(), "two failures then one success")
	// two backoffs: base, then 2*base
	assert.GreaterOrEqual(t, elapsed, 3*base)
}

func TestCallGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		if req.Method == "eth_blockNumber" {
			return "0x10", nil
		}
		calls.Add(1)
		return nil, &respError{Code: -32046, Message: "Cannot fulfill request"}
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, MaxAttempts: 3})

	var out string
	err := c.call(context.Background(), &out, "eth_chainId")
	require.Error(t, err)
	assert.True(t, errno.IsTransient(err))
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestMethodNotFoundIsPermanentAndNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		if req.Method == "eth_blockNumber" {
			return "0x10", nil
		}
		calls.Add(1)
		return nil, &respError{Code: -32601, Message: "the method txpool_content does not exist"}
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 5})

	_, err := c.TxPoolContent(context.Background())
	require.Error(t, err)
	assert.True(t, errno.IsPermanent(err))
	assert.True(t, IsMethodNotFound(err))
	assert.Equal(t, int32(1), calls.Load(), "permanent failures must not retry")
}

func TestHTTP429IsTransient(t *testing.T) {
	var shed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Method == "eth_blockNumber" {
			w.Header().Set("Content-Type", "application/json")
			resp, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": json.RawMessage(req.ID), "result": "0x10"})
			_, _ = w.Write(resp)
			return
		}
		shed.Add(1)
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 3})

	_, err := c.TxPoolContent(context.Background())
	require.Error(t, err)
	assert.True(t, errno.IsTransient(err), "429 must classify as transient: %v", err)
	assert.Equal(t, int32(3), shed.Load(), "429 responses are retried until the budget runs out")
}

func TestBlockByNumberDecodesWire(t *testing.T) {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		switch req.Method {
		case "eth_blockNumber":
			return "0x10", nil
		case "eth_getBlockByNumber":
			var numArg string
			require.NoError(t, json.Unmarshal(req.Params[0], &numArg))
			assert.Equal(t, "0x64", numArg)
			return map[string]any{
				"number":        "0x64",
				"hash":          "0x00000000000000000000000000000000000000000000000000000000000000aa",
				"parentHash":    "0x00000000000000000000000000000000000000000000000000000000000000bb",
				"timestamp":     "0x65f0e100",
				"miner":         "0x2222222222222222222222222222222222222222",
				"gasUsed":       "0xbebc20",
				"gasLimit":      "0x1c9c380",
				"baseFeePerGas": "0x3b9aca00",
				"transactions": []map[string]any{{
					"hash":     "0x00000000000000000000000000000000000000000000000000000000000000cc",
					"from":     "0x3333333333333333333333333333333333333333",
					"to":       to.Hex(),
					"value":    "0xde0b6b3a7640000",
					"gas":      "0x5208",
					"gasPrice": "0x77359400",
					"nonce":    "0x7",
					"type":     "0x2",
					"input":    "0xa9059cbb",
				}},
			}, nil
		}
		return nil, &respError{Code: -32601, Message: "unknown method"}
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{})

	block, err := c.BlockByNumber(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), block.NumberUint64())
	assert.Equal(t, uint64(0x65f0e100), uint64(block.Timestamp))
	assert.Equal(t, "1000000000", block.BaseFee.ToInt().String())
	require.Len(t, block.Transactions, 1)

	tx := block.Transactions[0]
	assert.Equal(t, to, *tx.To)
	assert.Equal(t, "1000000000000000000", tx.Value.ToInt().String())
	assert.Equal(t, uint64(21000), uint64(tx.Gas))
	assert.Equal(t, uint64(7), uint64(tx.Nonce))
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, []byte(tx.Input))
}

func TestBlockByNumberNullIsTransient(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		if req.Method == "eth_blockNumber" {
			return "0x10", nil
		}
		return nil, nil // "result": null
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{BaseDelay: time.Millisecond, MaxAttempts: 2})

	_, err := c.BlockByNumber(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errno.IsTransient(err))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTxPoolContentDecodesAndFlattens(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		switch req.Method {
		case "eth_blockNumber":
			return "0x10", nil
		case "txpool_content":
			return map[string]any{
				"pending": map[string]any{
					"0x4444444444444444444444444444444444444444": map[string]any{
						"12": map[string]any{
							"hash":  "0x00000000000000000000000000000000000000000000000000000000000000dd",
							"from":  "0x4444444444444444444444444444444444444444",
							"to":    "0x5555555555555555555555555555555555555555",
							"value": "0x0",
							"gas":   "0x5208",
							"nonce": "0xc",
							"input": "0x",
						},
						"13": map[string]any{
							"hash":  "0x00000000000000000000000000000000000000000000000000000000000000ee",
							"from":  "0x4444444444444444444444444444444444444444",
							"value": "0x0",
							"gas":   "0x5208",
							"nonce": "0xd",
							"input": "0x",
						},
					},
				},
				"queued": map[string]any{},
			}, nil
		}
		return nil, &respError{Code: -32601, Message: "unknown method"}
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{})

	content, err := c.TxPoolContent(context.Background())
	require.NoError(t, err)

	txs := content.Flatten()
	assert.Len(t, txs, 2)

	var creations int
	for _, tx := range txs {
		if tx.To == nil {
			creations++
		}
	}
	assert.Equal(t, 1, creations, "nonce 13 has no recipient")
}

func TestTransactionByHashNotFound(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		if req.Method == "eth_blockNumber" {
			return "0x10", nil
		}
		return nil, nil
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{})

	_, err := c.TransactionByHash(context.Background(), common.HexToHash("0xaa"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingBlockHashes(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		switch req.Method {
		case "eth_blockNumber":
			return "0x10", nil
		case "eth_getBlockByNumber":
			var tag string
			require.NoError(t, json.Unmarshal(req.Params[0], &tag))
			assert.Equal(t, "pending", tag)
			var full bool
			require.NoError(t, json.Unmarshal(req.Params[1], &full))
			assert.False(t, full)
			return map[string]any{
				"number": nil,
				"hash":   nil,
				"transactions": []string{
					"0x00000000000000000000000000000000000000000000000000000000000000aa",
					"0x00000000000000000000000000000000000000000000000000000000000000bb",
				},
			}, nil
		}
		return nil, &respError{Code: -32601, Message: "unknown method"}
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{})

	hashes, err := c.PendingBlockHashes(context.Background())
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
}

func TestCallStopsOnContextCancel(t *testing.T) {
	srv := newTestServer(t, func(req rpcRequest) (any, *respError) {
		if req.Method == "eth_blockNumber" {
			return "0x10", nil
		}
		return nil, &respError{Code: -32046, Message: "Cannot fulfill request"}
	})
	defer srv.Close()

	c := testClient(t, srv, RetryPolicy{BaseDelay: time.Hour, MaxAttempts: 5})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	var out string
	err := c.call(ctx, &out, "eth_chainId")
	assert.ErrorIs(t, err, context.Canceled)
}
