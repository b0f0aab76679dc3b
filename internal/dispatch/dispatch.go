// Package dispatch carries records from the pollers to the consume loop over
// bounded queues. A full queue blocks the producing poller rather than
// dropping records: monitoring correctness wins over latency.
package dispatch

import (
	"context"

	"ethwatch/internal/model"
	"ethwatch/pkg/metrics"
)

// Dispatcher owns one queue per record stream. Each queue has a single
// producer; Close is called once both producers have stopped.
type Dispatcher struct {
	txs    chan model.TransactionRecord
	blocks chan model.BlockRecord
}

func New(txBuffer, blockBuffer int) *Dispatcher {
	return &Dispatcher{
		txs:    make(chan model.TransactionRecord, txBuffer),
		blocks: make(chan model.BlockRecord, blockBuffer),
	}
}

// SendTransaction enqueues rec, blocking while the queue is full. Returns
// ctx.Err() if the caller is cancelled before space frees up.
func (d *Dispatcher) SendTransaction(ctx context.Context, rec model.TransactionRecord) error {
	select {
	case d.txs <- rec:
		metrics.DispatchQueueDepth.WithLabelValues("transactions").Set(float64(len(d.txs)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendBlock enqueues rec, blocking while the queue is full.
func (d *Dispatcher) SendBlock(ctx context.Context, rec model.BlockRecord) error {
	select {
	case d.blocks <- rec:
		metrics.DispatchQueueDepth.WithLabelValues("blocks").Set(float64(len(d.blocks)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Transactions() <-chan model.TransactionRecord {
	return d.txs
}

func (d *Dispatcher) Blocks() <-chan model.BlockRecord {
	return d.blocks
}

// Close releases the consumer. Must only be called after every producer has
// returned; the consume loop drains whatever is still buffered.
func (d *Dispatcher) Close() {
	close(d.txs)
	close(d.blocks)
}
