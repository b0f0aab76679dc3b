package export

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"ethwatch/internal/model"
	"ethwatch/pkg/logger"
	"ethwatch/pkg/metrics"
)

const publishTimeout = 5 * time.Second

type envelope struct {
	topic   string
	key     string
	payload []byte
}

// Exporter decouples publishing from the consume loop with a bounded queue
// and a single worker. Enqueueing never blocks: when the broker falls
// behind, records are dropped and counted. Close stops intake and drains
// accepted envelopes.
type Exporter struct {
	pub   Publisher
	queue chan envelope

	closeOnce sync.Once
	done      chan struct{}
}

func NewExporter(pub Publisher, queueSize int) *Exporter {
	if queueSize < 1 {
		queueSize = 1
	}
	e := &Exporter{
		pub:   pub,
		queue: make(chan envelope, queueSize),
		done:  make(chan struct{}),
	}
	go e.worker()
	return e
}

func (e *Exporter) worker() {
	defer close(e.done)
	for env := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := e.pub.Publish(ctx, env.topic, env.key, env.payload); err != nil {
			logger.Warn("export publish failed",
				zap.String("topic", env.topic),
				zap.Error(err))
		}
		cancel()
	}
}

// ExportTransaction enqueues rec as a TxEvent on the transactions topic.
func (e *Exporter) ExportTransaction(rec model.TransactionRecord) {
	e.enqueue(TopicTransactions, rec.Hash.Hex(), model.NewTxEvent(rec))
}

// ExportBlock enqueues rec as a BlockEvent on the blocks topic.
func (e *Exporter) ExportBlock(rec model.BlockRecord) {
	e.enqueue(TopicBlocks, rec.Hash.Hex(), model.NewBlockEvent(rec))
}

func (e *Exporter) enqueue(topic, key string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warn("export encode failed", zap.String("topic", topic), zap.Error(err))
		return
	}

	select {
	case e.queue <- envelope{topic: topic, key: key, payload: payload}:
	default:
		metrics.SidecarDroppedTotal.WithLabelValues("export").Inc()
		logger.Warn("export queue full, record dropped", zap.String("topic", topic))
	}
}

// Close drains the queue, then closes the underlying publisher.
func (e *Exporter) Close() error {
	e.closeOnce.Do(func() {
		close(e.queue)
	})
	<-e.done
	return e.pub.Close()
}
