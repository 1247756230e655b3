package ethereum

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"context"
	"math/big"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type (
	// API is the part of the go-ethereum client the feed relies on.
	API interface {
		BlockNumber(ctx context.Context) (uint64, error)
		HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
		SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (geth.Subscription, error)
		BlockByHash(ctx context.Context, hash common.Hash) (*types.Block, error)
		TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
		TransactionSender(ctx context.Context, tx *types.Transaction, block common.Hash, index uint) (common.Address, error)
		TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
		Close()
	}
	// RPCMetrics records node call outcomes.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}
)
