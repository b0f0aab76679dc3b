// Package ethrpc is the JSON-RPC transport layer. Every outbound call takes
// a rate permit first, runs under a per-call timeout, and classifies its
// failure as retryable or fatal. Transient failures are retried in place
// with exponential backoff so callers only ever see the final outcome.
package ethrpc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"ethwatch/pkg/errno"
	"ethwatch/pkg/logger"
	"ethwatch/pkg/metrics"
	"ethwatch/pkg/ratelimit"
)

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 8 * time.Second
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 5
	}
	return p
}

type Options struct {
	CallTimeout time.Duration
	DialTimeout time.Duration
	Retry       RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.CallTimeout <= 0 {
		o.CallTimeout = 10 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	o.Retry = o.Retry.withDefaults()
	return o
}

// Client issues JSON-RPC calls against one endpoint under a shared rate
// ceiling.
type Client struct {
	endpoint string
	rpc      *rpc.Client
	limiter  *ratelimit.Bucket
	opts     Options

	sleep func(context.Context, time.Duration) error
}

// Dial connects to the endpoint and probes it with a chain-tip query so a
// dead or misconfigured endpoint fails at startup instead of mid-run.
func Dial(ctx context.Context, endpoint string, limiter *ratelimit.Bucket, opts Options) (*Client, error) {
	opts = opts.withDefaults()

	dctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	rpcClient, err := rpc.DialContext(dctx, endpoint)
	if err != nil {
		return nil, classify("dial", err)
	}

	c := &Client{
		endpoint: endpoint,
		rpc:      rpcClient,
		limiter:  limiter,
		opts:     opts,
		sleep:    sleepCtx,
	}

	head, err := c.probe(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	logger.Info("connected to endpoint",
		zap.String("endpoint", endpoint),
		zap.Uint64("head", head))
	return c, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Close() {
	c.rpc.Close()
}

// probe issues a single unretried chain-tip query under the dial timeout.
func (c *Client) probe(ctx context.Context) (uint64, error) {
	pctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	if err := c.limiter.Acquire(pctx); err != nil {
		return 0, err
	}
	var head hexutil.Uint64
	start := time.Now()
	err := c.rpc.CallContext(pctx, &head, "eth_blockNumber")
	metrics.RPCRequestDuration.WithLabelValues("eth_blockNumber").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCRequestsTotal.WithLabelValues("eth_blockNumber", "probe_failed").Inc()
		return 0, classify("eth_blockNumber", err)
	}
	metrics.RPCRequestsTotal.WithLabelValues("eth_blockNumber", "ok").Inc()
	return uint64(head), nil
}

// call runs one logical request: permit, timeout, classification, retry.
// Successful calls never retry. Transient failures back off exponentially
// until the attempt budget runs out, then the last failure is returned.
func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	delay := c.opts.Retry.BaseDelay

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		cctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		start := time.Now()
		err := c.rpc.CallContext(cctx, result, method, args...)
		cancel()
		metrics.RPCRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.RPCRequestsTotal.WithLabelValues(method, "ok").Inc()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cerr := classify(method, err)
		if !errno.IsTransient(cerr) {
			metrics.RPCRequestsTotal.WithLabelValues(method, "permanent").Inc()
			return cerr
		}
		metrics.RPCRequestsTotal.WithLabelValues(method, "transient").Inc()

		if attempt >= c.opts.Retry.MaxAttempts {
			return cerr
		}

		metrics.RPCRetriesTotal.WithLabelValues(method).Inc()
		logger.Warn("transient endpoint failure, backing off",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Bool("rate_limited", IsRateLimited(err)),
			zap.Error(err))

		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if delay > c.opts.Retry.MaxDelay {
			delay = c.opts.Retry.MaxDelay
		}
	}
}

// BlockNumber returns the current chain tip height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var head hexutil.Uint64
	if err := c.call(ctx, &head, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(head), nil
}

// BlockByNumber fetches a finalized block with full transaction objects.
// A null answer for a height at or below the tip means the node is lagging;
// it surfaces as a transient ErrNotFound so the caller retries next cycle.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	var block *Block
	if err := c.call(ctx, &block, "eth_getBlockByNumber", hexutil.Uint64(number), true); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errno.Transient("eth_getBlockByNumber", ErrNotFound)
	}
	return block, nil
}

// PendingBlockHashes returns the transaction hashes of the node's pending
// block. This is the fallback mempool view for endpoints without txpool
// access.
func (c *Client) PendingBlockHashes(ctx context.Context) ([]common.Hash, error) {
	var block *struct {
		Transactions []common.Hash `json:"transactions"`
	}
	if err := c.call(ctx, &block, "eth_getBlockByNumber", "pending", false); err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errno.Transient("eth_getBlockByNumber", ErrNotFound)
	}
	return block.Transactions, nil
}

// TxPoolContent fetches the node's mempool snapshot with full transaction
// objects.
func (c *Client) TxPoolContent(ctx context.Context) (*TxPoolContent, error) {
	var content TxPoolContent
	if err := c.call(ctx, &content, "txpool_content"); err != nil {
		return nil, err
	}
	return &content, nil
}

// TransactionByHash fetches one transaction. A node that no longer knows
// the hash (dropped or replaced since the snapshot) returns ErrNotFound,
// which callers treat as a skip, not a failure.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*Transaction, error) {
	var tx *Transaction
	if err := c.call(ctx, &tx, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrNotFound
	}
	return tx, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
