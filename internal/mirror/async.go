package mirror

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ethwatch/internal/model"
	"ethwatch/pkg/logger"
	"ethwatch/pkg/metrics"
)

const writeTimeout = 10 * time.Second

// Async decorates a Mirror with a bounded queue and a single writer
// goroutine so mirror writes can never stall the watch pipeline. When the
// queue is full the write is dropped and counted, which is the documented
// best-effort contract. Close stops intake and drains what was accepted.
type Async struct {
	inner Mirror
	queue chan func(context.Context)

	closeOnce sync.Once
	done      chan struct{}
}

func NewAsync(inner Mirror, queueSize int) *Async {
	if queueSize < 1 {
		queueSize = 1
	}
	a := &Async{
		inner: inner,
		queue: make(chan func(context.Context), queueSize),
		done:  make(chan struct{}),
	}
	go a.worker()
	return a
}

func (a *Async) worker() {
	defer close(a.done)
	for op := range a.queue {
		// each write gets its own deadline; the hot path's context must
		// not govern work it already handed off
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		op(ctx)
		cancel()
	}
}

func (a *Async) enqueue(method string, op func(context.Context)) {
	select {
	case a.queue <- op:
	default:
		metrics.SidecarDroppedTotal.WithLabelValues("mirror").Inc()
		logger.Warn("mirror queue full, write dropped", zap.String("method", method))
	}
}

func (a *Async) RecordTransaction(_ context.Context, rec model.TransactionRecord) error {
	a.enqueue("recordTransaction", func(ctx context.Context) {
		if err := a.inner.RecordTransaction(ctx, rec); err != nil {
			logger.Warn("mirror recordTransaction failed", zap.Error(err))
		}
	})
	return nil
}

func (a *Async) RecordBlock(_ context.Context, rec model.BlockRecord) error {
	a.enqueue("recordBlock", func(ctx context.Context) {
		if err := a.inner.RecordBlock(ctx, rec); err != nil {
			logger.Warn("mirror recordBlock failed", zap.Error(err))
		}
	})
	return nil
}

func (a *Async) UpdateQueryRate(_ context.Context, rate float64) error {
	a.enqueue("updateQueryRate", func(ctx context.Context) {
		if err := a.inner.UpdateQueryRate(ctx, rate); err != nil {
			logger.Warn("mirror updateQueryRate failed", zap.Error(err))
		}
	})
	return nil
}

// Statistics bypasses the queue: reads are synchronous and rare.
func (a *Async) Statistics(ctx context.Context) (*model.MirrorStats, error) {
	return a.inner.Statistics(ctx)
}

func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		close(a.queue)
	})
	<-a.done
	return a.inner.Close()
}
