// Package engine runs one monitoring session: it spawns the pollers the
// configured mode asks for, consumes the dispatch queues, decorates and
// counts every record, and fans records out to the sink and the optional
// side channels. The engine owns the session lifecycle; callers start it
// with Run and stop it by cancelling the context.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ethwatch/internal/aggregate"
	"ethwatch/internal/decoder"
	"ethwatch/internal/dispatch"
	"ethwatch/internal/mirror"
	"ethwatch/internal/model"
	"ethwatch/internal/poller"
	"ethwatch/pkg/config"
	"ethwatch/pkg/logger"
	"ethwatch/pkg/metrics"
	"ethwatch/pkg/ratelimit"
	"ethwatch/pkg/seenset"
)

// Sink receives everything the consume loop produces, in arrival order,
// from a single goroutine. Implementations must not block for long: the
// sink sits on the hot path and a slow sink backs up the dispatch queues.
type Sink interface {
	OnTransaction(model.TransactionRecord)
	OnBlock(model.BlockRecord)
	OnStats(model.StatsSnapshot)
	OnShutdown(model.StatsSnapshot)
}

// Exporter is the optional stream publisher the engine hands records to.
// Calls must not block; implementations queue or drop.
type Exporter interface {
	ExportTransaction(model.TransactionRecord)
	ExportBlock(model.BlockRecord)
}

// Options carries the session tunables plus the optional side channels.
// Zero values fall back to the configuration defaults.
type Options struct {
	Mode          string // config.ModePending, config.ModeBlocks or config.ModeAll
	TxBuffer      int
	BlockBuffer   int
	SeenTTL       time.Duration
	BlockInterval time.Duration
	StatsInterval time.Duration

	Mirror   mirror.Mirror // nil disables mirroring
	Exporter Exporter      // nil disables the export stream
}

const seenSweepInterval = time.Minute

type Engine struct {
	reader  poller.ChainReader
	limiter *ratelimit.Bucket
	sink    Sink
	mir     mirror.Mirror
	exp     Exporter

	agg  *aggregate.Aggregator
	disp *dispatch.Dispatcher
	seen *seenset.Set
	opts Options
}

func New(reader poller.ChainReader, limiter *ratelimit.Bucket, sink Sink, opts Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = config.ModeAll
	}
	if opts.TxBuffer <= 0 {
		opts.TxBuffer = 1000
	}
	if opts.BlockBuffer <= 0 {
		opts.BlockBuffer = 100
	}
	if opts.SeenTTL <= 0 {
		opts.SeenTTL = 15 * time.Minute
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = time.Second
	}
	mir := opts.Mirror
	if mir == nil {
		mir = mirror.Noop{}
	}

	return &Engine{
		reader:  reader,
		limiter: limiter,
		sink:    sink,
		mir:     mir,
		exp:     opts.Exporter,
		agg:     aggregate.New(),
		disp:    dispatch.New(opts.TxBuffer, opts.BlockBuffer),
		seen:    seenset.New(opts.SeenTTL, seenSweepInterval),
		opts:    opts,
	}
}

// Run blocks until ctx is cancelled or a poller fails permanently. On the
// way out it drains the dispatch queues, hands the sink a final snapshot,
// and returns the poller error, if any. Run is single-shot.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("engine started", zap.String("mode", e.opts.Mode))

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	if e.opts.Mode == config.ModeAll || e.opts.Mode == config.ModePending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poller.NewPending(e.reader, e.seen, e.disp).Run(ctx); err != nil {
				errs <- err
				cancel()
			}
		}()
	}
	if e.opts.Mode == config.ModeAll || e.opts.Mode == config.ModeBlocks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poller.NewBlocks(e.reader, e.disp, e.opts.BlockInterval).Run(ctx); err != nil {
				errs <- err
				cancel()
			}
		}()
	}

	// The dispatcher closes once every producer has returned; the consume
	// loop then drains what is buffered and exits.
	go func() {
		wg.Wait()
		e.disp.Close()
	}()

	e.consume(ctx)

	final := e.agg.Snapshot()
	e.sink.OnShutdown(final)
	logger.Info("engine stopped",
		zap.Uint64("transactions", final.TransactionsMonitored),
		zap.Uint64("blocks", final.BlocksMonitored))

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// Snapshot is safe to call from any goroutine at any time; the ops server
// serves it.
func (e *Engine) Snapshot() model.StatsSnapshot {
	return e.agg.Snapshot()
}

func (e *Engine) consume(ctx context.Context) {
	ticker := time.NewTicker(e.opts.StatsInterval)
	defer ticker.Stop()

	txCh := e.disp.Transactions()
	blockCh := e.disp.Blocks()

	for txCh != nil || blockCh != nil {
		select {
		case rec, ok := <-txCh:
			if !ok {
				txCh = nil
				continue
			}
			e.handleTransaction(ctx, rec)
		case rec, ok := <-blockCh:
			if !ok {
				blockCh = nil
				continue
			}
			e.handleBlock(ctx, rec)
		case <-ticker.C:
			e.publishStats(ctx)
		}
	}
}

func (e *Engine) handleTransaction(ctx context.Context, rec model.TransactionRecord) {
	rec.Label = decoder.Label(rec.Input)

	e.agg.RecordTransaction(rec)
	metrics.TransactionsMonitoredTotal.Inc()
	metrics.PayloadLabelsTotal.WithLabelValues(rec.Label).Inc()

	e.sink.OnTransaction(rec)

	if e.exp != nil {
		e.exp.ExportTransaction(rec)
	}
	if err := e.mir.RecordTransaction(ctx, rec); err != nil {
		logger.Warn("mirror transaction write skipped", zap.Error(err))
	}
}

// handleBlock counts the block only; its embedded transactions were either
// already seen in the mempool or are not individually monitored.
func (e *Engine) handleBlock(ctx context.Context, rec model.BlockRecord) {
	e.agg.RecordBlock(rec)
	metrics.BlocksMonitoredTotal.Inc()

	e.sink.OnBlock(rec)

	if e.exp != nil {
		e.exp.ExportBlock(rec)
	}
	if err := e.mir.RecordBlock(ctx, rec); err != nil {
		logger.Warn("mirror block write skipped", zap.Error(err))
	}
}

// publishStats recomputes the session query rate as granted permits over
// uptime and pushes a snapshot to every stats consumer.
func (e *Engine) publishStats(ctx context.Context) {
	snap := e.agg.Snapshot()

	var rate float64
	if elapsed := snap.Uptime.Seconds(); elapsed > 0 {
		rate = float64(e.limiter.Granted()) / elapsed
	}
	e.agg.UpdateQueryRate(rate)
	metrics.QueryRate.Set(rate)
	snap.QueryRate = rate

	e.sink.OnStats(snap)

	if err := e.mir.UpdateQueryRate(ctx, rate); err != nil {
		logger.Warn("mirror rate write skipped", zap.Error(err))
	}
}
