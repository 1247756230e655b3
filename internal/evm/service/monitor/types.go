package monitor

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/chain"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Feed interface {
		LatestHeight(ctx context.Context) (uint64, error)
		SubscribeHeads(ctx context.Context, ch chan<- chain.Head) (chain.Subscription, error)
		FetchBlock(ctx context.Context, hash string) (chain.Block, error)
		FetchTransaction(ctx context.Context, ref chain.TxRef) (chain.Transaction, error)
		FetchReceipt(ctx context.Context, hash string) (chain.Receipt, error)
	}
	Sink interface {
		InsertTransactions(ctx context.Context, txs []model.Transaction) error
	}
	BlockProcessor interface {
		Process(ctx context.Context, head chain.Head) (model.BlockBatch, error)
	}
	BlockWriter interface {
		Start(ctx context.Context)
		Stop()
		WriteBlock(ctx context.Context, b model.BlockBatch) error
	}
	Metrics interface {
		ObserveBlock(err error, number uint64, valid, failed, invalid int, started time.Time)
		ObserveInsert(err error, started time.Time)
		ObserveResubscribe()
	}
)
