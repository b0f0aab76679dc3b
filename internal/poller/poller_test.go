package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ethwatch/internal/dispatch"
	"ethwatch/internal/model"
	"ethwatch/pkg/ethrpc"
)

// fakeReader scripts endpoint behavior per method. Each function receives
// the 1-based call count for its method so tests can change answers between
// cycles.
type fakeReader struct {
	mu    sync.Mutex
	calls map[string]int

	blockNumberFn   func(call int) (uint64, error)
	blockByNumberFn func(call int, number uint64) (*ethrpc.Block, error)
	txPoolFn        func(call int) (*ethrpc.TxPoolContent, error)
	pendingFn       func(call int) ([]common.Hash, error)
	txByHashFn      func(call int, hash common.Hash) (*ethrpc.Transaction, error)
}

func newFakeReader() *fakeReader {
	return &fakeReader{calls: make(map[string]int)}
}

func (f *fakeReader) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.calls[method]
}

func (f *fakeReader) callsTo(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	return f.blockNumberFn(f.count("eth_blockNumber"))
}

func (f *fakeReader) BlockByNumber(ctx context.Context, number uint64) (*ethrpc.Block, error) {
	return f.blockByNumberFn(f.count("eth_getBlockByNumber"), number)
}

func (f *fakeReader) PendingBlockHashes(ctx context.Context) ([]common.Hash, error) {
	return f.pendingFn(f.count("pending_block"))
}

func (f *fakeReader) TxPoolContent(ctx context.Context) (*ethrpc.TxPoolContent, error) {
	return f.txPoolFn(f.count("txpool_content"))
}

func (f *fakeReader) TransactionByHash(ctx context.Context, hash common.Hash) (*ethrpc.Transaction, error) {
	return f.txByHashFn(f.count("eth_getTransactionByHash"), hash)
}

// rpcErr mimics a JSON-RPC error object the way the rpc package surfaces it.
type rpcErr struct {
	code int
	msg  string
}

func (e rpcErr) Error() string  { return e.msg }
func (e rpcErr) ErrorCode() int { return e.code }

func mkTx(id byte) ethrpc.Transaction {
	v := hexutil.Big(*hexutil.MustDecodeBig("0xde0b6b3a7640000"))
	return ethrpc.Transaction{
		Hash:  common.HexToHash(fmt.Sprintf("0x%02x", id)),
		From:  common.HexToAddress(fmt.Sprintf("0x%02x00000000000000000000000000000000000000", id)),
		Value: &v,
		Gas:   hexutil.Uint64(21000),
		Nonce: hexutil.Uint64(id),
		Input: hexutil.Bytes{0xa9, 0x05, 0x9c, 0xbb},
	}
}

// poolOf groups the given transactions into a txpool_content shape.
func poolOf(txs ...ethrpc.Transaction) *ethrpc.TxPoolContent {
	content := &ethrpc.TxPoolContent{
		Pending: make(map[common.Address]map[string]ethrpc.Transaction),
		Queued:  map[common.Address]map[string]ethrpc.Transaction{},
	}
	for _, tx := range txs {
		byNonce, ok := content.Pending[tx.From]
		if !ok {
			byNonce = make(map[string]ethrpc.Transaction)
			content.Pending[tx.From] = byNonce
		}
		byNonce[fmt.Sprintf("%d", uint64(tx.Nonce))] = tx
	}
	return content
}

func mkBlock(number uint64, parent common.Hash, txs ...ethrpc.Transaction) *ethrpc.Block {
	num := hexutil.Big(*hexutil.MustDecodeBig(hexutil.EncodeUint64(number)))
	hash := blockHash(number)
	return &ethrpc.Block{
		Number:       &num,
		Hash:         &hash,
		ParentHash:   parent,
		Timestamp:    hexutil.Uint64(1700000000 + number),
		Miner:        common.HexToAddress("0x2222222222222222222222222222222222222222"),
		GasUsed:      hexutil.Uint64(12_000_000),
		GasLimit:     hexutil.Uint64(30_000_000),
		Transactions: txs,
	}
}

func blockHash(number uint64) common.Hash {
	return common.HexToHash(fmt.Sprintf("0x%064x", number))
}

// drainTxs empties whatever the poller buffered before it stopped.
func drainTxs(d *dispatch.Dispatcher) []model.TransactionRecord {
	var out []model.TransactionRecord
	for {
		select {
		case rec := <-d.Transactions():
			out = append(out, rec)
		default:
			return out
		}
	}
}

func drainBlocks(d *dispatch.Dispatcher) []model.BlockRecord {
	var out []model.BlockRecord
	for {
		select {
		case rec := <-d.Blocks():
			out = append(out, rec)
		default:
			return out
		}
	}
}

// waitDone asserts that a poller goroutine finished and hands back its error.
func waitDone(done <-chan error) (error, bool) {
	select {
	case err := <-done:
		return err, true
	case <-time.After(2 * time.Second):
		return nil, false
	}
}
