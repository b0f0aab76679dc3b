// Package export fans monitored records out to an external message bus so
// other processes can consume the stream. Like the statistics mirror it is
// best-effort: a slow or dead broker costs records on this side channel,
// never throughput on the watch pipeline.
package export

import "context"

// Topics carrying the two record streams.
const (
	TopicTransactions = "ethwatch.transactions"
	TopicBlocks       = "ethwatch.blocks"
)

// Publisher is one broker connection. Key selects the partition so records
// for the same hash land in order.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}
