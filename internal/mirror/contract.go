package mirror

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"ethwatch/internal/model"
	"ethwatch/pkg/logger"
)

// statsABI is the write/read surface of the statistics contract. The
// contract restricts writes to its owner, so every call is signed with the
// configured key.
const statsABI = `[
  {"type":"function","name":"recordTransaction","stateMutability":"nonpayable","inputs":[
    {"name":"from","type":"address"},{"name":"to","type":"address"},
    {"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
  {"type":"function","name":"recordBlock","stateMutability":"nonpayable","inputs":[
    {"name":"blockNumber","type":"uint256"},{"name":"blockHash","type":"bytes32"},
    {"name":"timestamp","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"updateQueryRate","stateMutability":"nonpayable","inputs":[
    {"name":"rate","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getStatistics","stateMutability":"view","inputs":[],"outputs":[
    {"name":"totalTransactions","type":"uint256"},{"name":"totalBlocks","type":"uint256"},
    {"name":"lastBlockNumber","type":"uint256"},{"name":"queryRate","type":"uint256"}]},
  {"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[
    {"name":"newOwner","type":"address"}],"outputs":[]}
]`

type ContractConfig struct {
	Endpoint   string
	Address    string
	PrivateKey string // hex, with or without 0x prefix
	ChainID    int64
	GasLimit   uint64
}

// Contract mirrors statistics into the configured contract. Writes are
// plain signed transactions; the caller decides whether to decouple them
// from the hot path (see Async).
type Contract struct {
	client   *ethclient.Client
	abi      abi.ABI
	address  common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	signer   types.Signer
	gasLimit uint64

	// one pending nonce chain per key; serialize so concurrent writes
	// cannot reuse a nonce
	mu sync.Mutex
}

func NewContract(ctx context.Context, cfg ContractConfig) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(statsABI))
	if err != nil {
		return nil, fmt.Errorf("parse statistics abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse mirror key: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial mirror endpoint: %w", err)
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 200_000
	}

	c := &Contract{
		client:   client,
		abi:      parsed,
		address:  common.HexToAddress(cfg.Address),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		signer:   types.LatestSignerForChainID(big.NewInt(cfg.ChainID)),
		gasLimit: gasLimit,
	}
	logger.Info("statistics mirror attached",
		zap.String("contract", c.address.Hex()),
		zap.String("signer", c.from.Hex()))
	return c, nil
}

func (c *Contract) RecordTransaction(ctx context.Context, rec model.TransactionRecord) error {
	to := common.Address{}
	if rec.To != nil {
		to = *rec.To
	}
	value := rec.Value
	if value == nil {
		value = new(big.Int)
	}
	return c.send(ctx, "recordTransaction", rec.From, to, value, rec.Input)
}

func (c *Contract) RecordBlock(ctx context.Context, rec model.BlockRecord) error {
	var hash [32]byte
	copy(hash[:], rec.Hash.Bytes())
	return c.send(ctx, "recordBlock",
		new(big.Int).SetUint64(rec.Number), hash, new(big.Int).SetUint64(rec.Timestamp))
}

func (c *Contract) UpdateQueryRate(ctx context.Context, rate float64) error {
	if rate < 0 {
		rate = 0
	}
	return c.send(ctx, "updateQueryRate", new(big.Int).SetUint64(uint64(rate)))
}

// Statistics reads the four counters back from the contract.
func (c *Contract) Statistics(ctx context.Context) (*model.MirrorStats, error) {
	data, err := c.abi.Pack("getStatistics")
	if err != nil {
		return nil, err
	}

	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("getStatistics call: %w", err)
	}

	vals, err := c.abi.Unpack("getStatistics", out)
	if err != nil || len(vals) != 4 {
		return nil, fmt.Errorf("getStatistics returned malformed data: %w", err)
	}

	stats := &model.MirrorStats{}
	for i, dst := range []**big.Int{
		&stats.TotalTransactions, &stats.TotalBlocks, &stats.LastBlockNumber, &stats.QueryRate,
	} {
		v, ok := vals[i].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("getStatistics output %d is not uint256", i)
		}
		*dst = v
	}
	return stats, nil
}

func (c *Contract) Close() error {
	c.client.Close()
	return nil
}

// send signs and broadcasts one contract write. It does not wait for the
// receipt: mirroring is advisory and the next write supersedes a lost one.
func (c *Contract) send(ctx context.Context, method string, args ...any) error {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return fmt.Errorf("%s nonce: %w", method, err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("%s gas price: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.address,
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, c.signer, c.key)
	if err != nil {
		return fmt.Errorf("sign %s: %w", method, err)
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}
	logger.Debug("mirror write sent",
		zap.String("method", method),
		zap.String("tx", signed.Hash().Hex()))
	return nil
}
