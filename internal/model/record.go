package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionRecord is one observed pending transaction. Records are
// immutable once constructed and uniquely keyed by Hash.
type TransactionRecord struct {
	Hash     common.Hash
	From     common.Address
	To       *common.Address // nil for contract creation
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64
	Type     uint8
	Input    []byte
	Label    string // payload label, filled in by the decoder
	Observed time.Time
}

// CreatesContract reports whether the transaction deploys code.
func (r *TransactionRecord) CreatesContract() bool {
	return r.To == nil
}

// BlockRecord is one finalized block with its transactions. Block records
// are dispatched in strictly increasing Number order.
type BlockRecord struct {
	Number       uint64
	Hash         common.Hash
	ParentHash   common.Hash
	Timestamp    uint64 // unix seconds, as reported by the chain
	Miner        common.Address
	GasUsed      uint64
	GasLimit     uint64
	BaseFee      *big.Int // nil before the fee market fork
	Transactions []TransactionRecord
	Observed     time.Time
}

// StatsSnapshot is a point-in-time copy of the aggregator counters.
type StatsSnapshot struct {
	TransactionsMonitored uint64
	BlocksMonitored       uint64
	LastBlockNumber       uint64
	LastBlockAt           time.Time
	QueryRate             float64
	StartedAt             time.Time
	Uptime                time.Duration
}

// MirrorStats are the four counters kept by the on-chain statistics mirror.
type MirrorStats struct {
	TotalTransactions *big.Int
	TotalBlocks       *big.Int
	LastBlockNumber   *big.Int
	QueryRate         *big.Int
}
