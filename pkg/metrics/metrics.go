package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Watch metrics cover the polling pipeline: endpoint traffic, dispatch
// queues and the records flowing out of them.
var (
	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ethwatch_rpc_requests_total",
		Help: "Endpoint calls issued, by method and outcome.",
	}, []string{"method", "outcome"})

	RPCRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ethwatch_rpc_request_duration_seconds",
		Help:    "Endpoint call latency distributions.",
		Buckets: []float64{0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"method"})

	RPCRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ethwatch_rpc_retries_total",
		Help: "Retry attempts after transient endpoint failures.",
	}, []string{"method"})

	TransactionsMonitoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ethwatch_transactions_monitored_total",
		Help: "Pending transactions dispatched to the consumer.",
	})

	BlocksMonitoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ethwatch_blocks_monitored_total",
		Help: "Finalized blocks dispatched to the consumer.",
	})

	PayloadLabelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ethwatch_payload_labels_total",
		Help: "Decoded payload labels, by label.",
	}, []string{"label"})

	QueryRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ethwatch_query_rate",
		Help: "Observed endpoint queries per second.",
	})

	DispatchQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ethwatch_dispatch_queue_depth",
		Help: "Records sitting in the dispatch queues.",
	}, []string{"queue"})

	SidecarDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ethwatch_sidecar_dropped_total",
		Help: "Best-effort side records dropped because a queue was full.",
	}, []string{"sink"})
)
