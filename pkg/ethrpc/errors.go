package ethrpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/rpc"

	"ethwatch/pkg/errno"
)

// JSON-RPC codes the client must recognize by value. codeRateLimited is the
// endpoint-specific "Cannot fulfill request" rejection public gateways send
// when a caller exceeds their quota.
const (
	codeRateLimited    = -32046
	codeLimitExceeded  = -32005
	codeMethodNotFound = -32601
	codeInvalidRequest = -32600
	codeInvalidParams  = -32602
	codeParse          = -32700
)

// ErrNotFound reports that the endpoint answered null for an object the
// caller asked for by identifier.
var ErrNotFound = errors.New("not found")

// classify wraps a raw transport failure into the retryable/fatal taxonomy.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}

	// Parent cancellation is shutdown, not an endpoint failure.
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errno.Transient(method, err)
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 429:
			return errno.Transient(method, err)
		case httpErr.StatusCode >= 500:
			return errno.Transient(method, err)
		default:
			return errno.Permanent(method, err)
		}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch code := rpcErr.ErrorCode(); code {
		case codeMethodNotFound, codeInvalidRequest, codeInvalidParams, codeParse:
			return errno.Permanent(method, err)
		default:
			// The server-defined range carries load shedding and rate
			// limiting; anything outside it is an application rejection.
			if code >= -32099 && code <= -32000 {
				return errno.Transient(method, err)
			}
			return errno.Permanent(method, err)
		}
	}

	// Malformed response bodies cannot be fixed by retrying.
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
		return errno.Permanent(method, err)
	}

	// Everything else is the network layer: timeouts, resets, DNS.
	return errno.Transient(method, err)
}

// IsMethodNotFound reports whether err is the endpoint rejecting a method
// it does not serve. The pending poller uses this to pick its fallback
// snapshot strategy.
func IsMethodNotFound(err error) bool {
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeMethodNotFound
}

// IsRateLimited reports whether err is the endpoint shedding load, either
// via HTTP 429 or a rate-limit JSON-RPC code.
func IsRateLimited(err error) bool {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code := rpcErr.ErrorCode()
		return code == codeRateLimited || code == codeLimitExceeded
	}
	return false
}
