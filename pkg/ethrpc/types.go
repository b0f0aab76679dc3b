package ethrpc

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transaction is the endpoint's wire shape of a transaction object.
type Transaction struct {
	Hash     common.Hash     `json:"hash"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Value    *hexutil.Big    `json:"value"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Type     hexutil.Uint64  `json:"type"`
	Input    hexutil.Bytes   `json:"input"`
}

// Block is the endpoint's wire shape of a block with full transaction
// objects. Number and Hash are pointers because the pending block reports
// both as null.
type Block struct {
	Number       *hexutil.Big    `json:"number"`
	Hash         *common.Hash    `json:"hash"`
	ParentHash   common.Hash     `json:"parentHash"`
	Timestamp    hexutil.Uint64  `json:"timestamp"`
	Miner        common.Address  `json:"miner"`
	GasUsed      hexutil.Uint64  `json:"gasUsed"`
	GasLimit     hexutil.Uint64  `json:"gasLimit"`
	BaseFee      *hexutil.Big    `json:"baseFeePerGas"`
	Transactions []Transaction   `json:"transactions"`
}

// NumberUint64 reports the block number, zero for the pending block.
func (b *Block) NumberUint64() uint64 {
	if b.Number == nil {
		return 0
	}
	return b.Number.ToInt().Uint64()
}

// TxPoolContent is the mempool snapshot: per-sender, per-nonce transaction
// objects split into executable (pending) and gapped (queued) sets.
type TxPoolContent struct {
	Pending map[common.Address]map[string]Transaction `json:"pending"`
	Queued  map[common.Address]map[string]Transaction `json:"queued"`
}

// Flatten returns every executable transaction in the snapshot.
func (c *TxPoolContent) Flatten() []Transaction {
	var out []Transaction
	for _, byNonce := range c.Pending {
		for _, tx := range byNonce {
			out = append(out, tx)
		}
	}
	return out
}
