package ethereum

import (
	"context"
	"math/big"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ObservedClient reports every node call of an ethclient.Client to RPCMetrics.
type ObservedClient struct {
	client     *ethclient.Client
	rpcMetrics RPCMetrics
}

// NewObservedClient wraps client.
func NewObservedClient(client *ethclient.Client, rpcMetrics RPCMetrics) *ObservedClient {
	return &ObservedClient{
		client:     client,
		rpcMetrics: rpcMetrics,
	}
}

func (r *ObservedClient) BlockNumber(ctx context.Context) (height uint64, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("eth_blockNumber", err, started)
	}()
	return r.client.BlockNumber(ctx)
}

func (r *ObservedClient) HeaderByNumber(ctx context.Context, number *big.Int) (header *types.Header, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("eth_getBlockByNumber", err, started)
	}()
	return r.client.HeaderByNumber(ctx, number)
}

func (r *ObservedClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (sub geth.Subscription, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("eth_subscribe", err, started)
	}()
	return r.client.SubscribeNewHead(ctx, ch)
}

func (r *ObservedClient) BlockByHash(ctx context.Context, hash common.Hash) (block *types.Block, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("eth_getBlockByHash", err, started)
	}()
	return r.client.BlockByHash(ctx, hash)
}

func (r *ObservedClient) TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, pending bool, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("eth_getTransactionByHash", err, started)
	}()
	return r.client.TransactionByHash(ctx, hash)
}

func (r *ObservedClient) TransactionSender(ctx context.Context, tx *types.Transaction, block common.Hash, index uint) (from common.Address, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("transaction_sender", err, started)
	}()
	return r.client.TransactionSender(ctx, tx, block, index)
}

func (r *ObservedClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (receipt *types.Receipt, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("eth_getTransactionReceipt", err, started)
	}()
	return r.client.TransactionReceipt(ctx, txHash)
}

func (r *ObservedClient) Close() {
	r.client.Close()
}
