// Package poller implements the two polling workers that feed the watch
// pipeline: one sampling the mempool for newly broadcast transactions, one
// walking the chain tip for newly finalized blocks. Both run until their
// context is cancelled, share one rate-limited endpoint client, and survive
// transient endpoint failures by skipping the cycle. A permanent failure
// (the endpoint cannot serve a required method at all) stops the poller and
// surfaces the error to the engine.
package poller

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"ethwatch/internal/model"
	"ethwatch/pkg/ethrpc"
)

// ChainReader is the endpoint surface the pollers consume. *ethrpc.Client
// satisfies it; tests substitute fakes.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (*ethrpc.Block, error)
	PendingBlockHashes(ctx context.Context) ([]common.Hash, error)
	TxPoolContent(ctx context.Context) (*ethrpc.TxPoolContent, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethrpc.Transaction, error)
}

func toTxRecord(tx ethrpc.Transaction, observed time.Time) model.TransactionRecord {
	rec := model.TransactionRecord{
		Hash:     tx.Hash,
		From:     tx.From,
		To:       tx.To,
		GasLimit: uint64(tx.Gas),
		Nonce:    uint64(tx.Nonce),
		Type:     uint8(tx.Type),
		Input:    tx.Input,
		Observed: observed,
	}
	if tx.Value != nil {
		rec.Value = tx.Value.ToInt()
	}
	if tx.GasPrice != nil {
		rec.GasPrice = tx.GasPrice.ToInt()
	}
	return rec
}

func toBlockRecord(b *ethrpc.Block, observed time.Time) model.BlockRecord {
	rec := model.BlockRecord{
		Number:     b.NumberUint64(),
		ParentHash: b.ParentHash,
		Timestamp:  uint64(b.Timestamp),
		Miner:      b.Miner,
		GasUsed:    uint64(b.GasUsed),
		GasLimit:   uint64(b.GasLimit),
		Observed:   observed,
	}
	if b.Hash != nil {
		rec.Hash = *b.Hash
	}
	if b.BaseFee != nil {
		rec.BaseFee = b.BaseFee.ToInt()
	}
	rec.Transactions = make([]model.TransactionRecord, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		rec.Transactions = append(rec.Transactions, toTxRecord(tx, observed))
	}
	return rec
}
