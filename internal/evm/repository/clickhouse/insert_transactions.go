package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
	"github.com/goodnatureofminers/blockinsight7000-evm/pkg/safe"
)

const insertTransactionsQuery = `
INSERT INTO evm_transactions (
	timestamp,
	status,
	block_number,
	tx_index,
	from_address,
	to_address,
	value,
	gas_limit,
	gas_used,
	gas_price
) VALUES`

// InsertTransactions stores records as one batch. A record that cannot be
// converted to column types aborts the batch before anything is sent.
func (r *Repository) InsertTransactions(ctx context.Context, txs []model.Transaction) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_transactions", err, start)
	}()

	if len(txs) == 0 {
		return nil
	}

	b, err := r.conn.PrepareBatch(ctx, insertTransactionsQuery)
	if err != nil {
		return fmt.Errorf("prepare transactions batch: %w", err)
	}

	for i, tx := range txs {
		var values []any
		values, err = columnValues(tx)
		if err != nil {
			_ = b.Abort()
			err = fmt.Errorf("convert transaction %d (block %s, index %s): %w", i, tx.BlockNumber, tx.TxIndex, err)
			return err
		}
		if err = b.Append(values...); err != nil {
			_ = b.Abort()
			return fmt.Errorf("append transaction: %w", err)
		}
	}

	if err = b.Send(); err != nil {
		return fmt.Errorf("insert transactions: %w", err)
	}
	r.metrics.ObserveInsertedRows(len(txs))
	return nil
}

func columnValues(tx model.Transaction) ([]any, error) {
	ts, err := model.ParseTimestamp(tx.Timestamp)
	if err != nil {
		return nil, err
	}
	blockNumber, err := strconv.ParseUint(tx.BlockNumber, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("block_number: %w", err)
	}
	index, err := strconv.ParseUint(tx.TxIndex, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("tx_index: %w", err)
	}
	txIndex, err := safe.Uint32(index)
	if err != nil {
		return nil, fmt.Errorf("tx_index: %w", err)
	}

	magnitudes := make([]*big.Int, 0, 4)
	for _, f := range []struct{ name, value string }{
		{"value", tx.Value},
		{"gas_limit", tx.GasLimit},
		{"gas_used", tx.GasUsed},
		{"gas_price", tx.GasPrice},
	} {
		n, ok := new(big.Int).SetString(f.value, 10)
		if !ok || n.Sign() < 0 || n.BitLen() > 256 {
			return nil, fmt.Errorf("%s: %q is not a UInt256", f.name, f.value)
		}
		magnitudes = append(magnitudes, n)
	}

	return []any{
		ts,
		tx.Status,
		blockNumber,
		txIndex,
		tx.FromAddress,
		tx.ToAddress,
		magnitudes[0],
		magnitudes[1],
		magnitudes[2],
		magnitudes[3],
	}, nil
}
