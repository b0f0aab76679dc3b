package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ethwatch/internal/dispatch"
	"ethwatch/pkg/errno"
	"ethwatch/pkg/ethrpc"
	"ethwatch/pkg/logger"
	"ethwatch/pkg/seenset"
)

// PendingPoller samples the endpoint's mempool and dispatches each newly
// observed transaction exactly once while its seen-set entry lives. The
// primary view is txpool_content; endpoints that do not serve it are
// downgraded once, for the rest of the session, to the pending-block
// snapshot. There is no sleep between cycles: the shared rate limiter inside
// the client paces the loop, so the poller runs as fresh as the call budget
// allows.
type PendingPoller struct {
	reader ChainReader
	seen   *seenset.Set
	out    *dispatch.Dispatcher

	// usePendingBlock flips to true after txpool_content comes back
	// method-not-found. It never flips back.
	usePendingBlock bool

	now func() time.Time
}

func NewPending(reader ChainReader, seen *seenset.Set, out *dispatch.Dispatcher) *PendingPoller {
	return &PendingPoller{
		reader: reader,
		seen:   seen,
		out:    out,
		now:    time.Now,
	}
}

// Run loops until ctx is cancelled. It returns nil on cancellation and a
// permanent error when the endpoint supports neither mempool view.
func (p *PendingPoller) Run(ctx context.Context) error {
	logger.Info("pending poller started")

	for {
		if ctx.Err() != nil {
			logger.Info("pending poller stopped")
			return nil
		}

		if err := p.cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("pending poller stopped")
				return nil
			}
			if errno.IsPermanent(err) {
				logger.Error("pending poller cannot continue", zap.Error(err))
				return err
			}
			// Transient budget spent on this cycle; the next one starts on
			// the limiter's cadence.
			logger.Warn("mempool poll cycle skipped", zap.Error(err))
		}
	}
}

func (p *PendingPoller) cycle(ctx context.Context) error {
	if p.usePendingBlock {
		return p.pollPendingBlock(ctx)
	}

	err := p.pollTxPool(ctx)
	if err != nil && ethrpc.IsMethodNotFound(err) {
		logger.Warn("endpoint does not serve txpool_content, falling back to pending block snapshot")
		p.usePendingBlock = true
		return p.pollPendingBlock(ctx)
	}
	return err
}

// pollTxPool diffs the full mempool snapshot against the seen-set and
// dispatches the new entries. Snapshot order is arbitrary; the only
// guarantee is no duplicates while seen entries live.
func (p *PendingPoller) pollTxPool(ctx context.Context) error {
	content, err := p.reader.TxPoolContent(ctx)
	if err != nil {
		return err
	}

	observed := p.now()
	dispatched := 0
	for _, tx := range content.Flatten() {
		if !p.seen.Add(tx.Hash.Hex()) {
			continue
		}
		if err := p.out.SendTransaction(ctx, toTxRecord(tx, observed)); err != nil {
			return err
		}
		dispatched++
	}

	if dispatched > 0 {
		logger.Debug("mempool snapshot diffed",
			zap.Int("new", dispatched),
			zap.Int("seen_live", p.seen.Len()))
	}
	return nil
}

// pollPendingBlock is the degraded view: the pending block lists hashes
// only, so each new hash costs one more call to fetch the body. Hashes the
// node has already dropped are skipped without burning the cycle.
func (p *PendingPoller) pollPendingBlock(ctx context.Context) error {
	hashes, err := p.reader.PendingBlockHashes(ctx)
	if err != nil {
		if ethrpc.IsMethodNotFound(err) {
			return errno.Permanent("pending_poll",
				errors.New("endpoint serves neither txpool_content nor the pending block"))
		}
		return err
	}

	observed := p.now()
	for _, hash := range hashes {
		if !p.seen.Add(hash.Hex()) {
			continue
		}
		tx, err := p.reader.TransactionByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, ethrpc.ErrNotFound) {
				continue
			}
			return err
		}
		if err := p.out.SendTransaction(ctx, toTxRecord(*tx, observed)); err != nil {
			return err
		}
	}
	return nil
}
