package monitor

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/chain"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
	"github.com/goodnatureofminers/blockinsight7000-evm/pkg/workerpool"
)

type blockProcessor struct {
	feed        Feed
	workerCount int
	metrics     Metrics
	logger      *zap.Logger
}

// Process fetches the block behind head and returns its valid records in block order.
// Transactions that cannot be fetched or fail validation are dropped.
func (p *blockProcessor) Process(ctx context.Context, head chain.Head) (model.BlockBatch, error) {
	started := time.Now()

	block, err := p.feed.FetchBlock(ctx, head.Hash)
	if err != nil {
		p.metrics.ObserveBlock(err, head.Number, 0, 0, 0, started)
		return model.BlockBatch{}, fmt.Errorf("fetch block %d: %w", head.Number, err)
	}

	refs := make([]chain.TxRef, len(block.TxHashes))
	for i, hash := range block.TxHashes {
		refs[i] = chain.TxRef{BlockHash: block.Hash, Index: uint(i), Hash: hash}
	}

	results := workerpool.Map(ctx, p.workerCount, refs, func(ctx context.Context, ref chain.TxRef) (model.Transaction, error) {
		tx, err := p.hydrate(ctx, block, ref)
		if err != nil && ctx.Err() == nil {
			p.logger.Warn("fetch transaction failed",
				zap.Uint64("block", block.Number),
				zap.String("tx", ref.Hash),
				zap.Error(err),
			)
		}
		return tx, err
	})
	if err := ctx.Err(); err != nil {
		return model.BlockBatch{}, err
	}

	fetched, failed := workerpool.Collect(results)
	records := fetched[:0]
	var invalid int
	for _, tx := range fetched {
		if err := tx.Validate(); err != nil {
			invalid++
			p.logger.Warn("invalid transaction dropped",
				zap.Uint64("block", block.Number),
				zap.String("tx_index", tx.TxIndex),
				zap.Error(err),
			)
			continue
		}
		records = append(records, tx)
	}

	p.metrics.ObserveBlock(nil, block.Number, len(records), failed, invalid, started)
	p.logger.Debug("block processed",
		zap.Uint64("block", block.Number),
		zap.Int("transactions", len(refs)),
		zap.Int("valid", len(records)),
	)

	return model.BlockBatch{Number: block.Number, Hash: block.Hash, Records: records}, nil
}

// hydrate fetches transaction detail and receipt concurrently.
func (p *blockProcessor) hydrate(ctx context.Context, block chain.Block, ref chain.TxRef) (model.Transaction, error) {
	var (
		tx      chain.Transaction
		receipt chain.Receipt
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tx, err = p.feed.FetchTransaction(gctx, ref); err != nil {
			return fmt.Errorf("fetch transaction: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if receipt, err = p.feed.FetchReceipt(gctx, ref.Hash); err != nil {
			return fmt.Errorf("fetch receipt: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.Transaction{}, err
	}

	return buildRecord(block, tx, receipt), nil
}

func buildRecord(block chain.Block, tx chain.Transaction, receipt chain.Receipt) model.Transaction {
	gasPrice := receipt.EffectiveGasPrice
	if gasPrice == nil {
		gasPrice = tx.GasPrice
	}

	return model.Transaction{
		Timestamp:   model.FormatTimestamp(block.Time),
		Status:      receipt.Status == chain.ReceiptStatusSuccessful,
		BlockNumber: strconv.FormatUint(block.Number, 10),
		TxIndex:     strconv.FormatUint(uint64(receipt.TransactionIndex), 10),
		FromAddress: tx.From,
		ToAddress:   tx.To,
		Value:       bigString(tx.Value),
		GasLimit:    strconv.FormatUint(tx.Gas, 10),
		GasUsed:     strconv.FormatUint(receipt.GasUsed, 10),
		GasPrice:    bigString(gasPrice),
	}
}

// bigString leaves a missing magnitude empty so validation rejects the record.
func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
