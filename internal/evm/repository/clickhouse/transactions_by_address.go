package clickhouse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

const selectTransactionColumns = `
SELECT
	timestamp,
	status,
	block_number,
	tx_index,
	from_address,
	to_address,
	toString(value),
	toString(gas_limit),
	toString(gas_used),
	toString(gas_price)
FROM evm_transactions FINAL
WHERE from_address = ? OR to_address = ?`

func transactionsByAddressQuery(order model.Order) (string, error) {
	switch order {
	case model.OrderBlockPosition:
		return selectTransactionColumns + `
ORDER BY block_number ASC, tx_index ASC
LIMIT ? OFFSET ?`, nil
	case model.OrderValueDesc:
		return selectTransactionColumns + `
ORDER BY value DESC, block_number ASC, tx_index ASC
LIMIT ? OFFSET ?`, nil
	default:
		return "", fmt.Errorf("unsupported order %q", order)
	}
}

// TransactionsByAddress returns one page of transactions sent or received by address.
func (r *Repository) TransactionsByAddress(ctx context.Context, address string, order model.Order, limit, offset uint64) (txs []model.Transaction, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("transactions_by_address", err, start)
	}()

	query, err := transactionsByAddressQuery(order)
	if err != nil {
		return nil, err
	}

	rs, err := r.conn.Query(ctx, query, address, address, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query transactions by address: %w", err)
	}
	defer func() {
		if cerr := rs.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	txs = make([]model.Transaction, 0, limit)
	for rs.Next() {
		var (
			tx          model.Transaction
			ts          time.Time
			blockNumber uint64
			txIndex     uint32
		)
		if err = rs.Scan(
			&ts,
			&tx.Status,
			&blockNumber,
			&txIndex,
			&tx.FromAddress,
			&tx.ToAddress,
			&tx.Value,
			&tx.GasLimit,
			&tx.GasUsed,
			&tx.GasPrice,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Timestamp = model.FormatTimestamp(ts)
		tx.BlockNumber = strconv.FormatUint(blockNumber, 10)
		tx.TxIndex = strconv.FormatUint(uint64(txIndex), 10)
		txs = append(txs, tx)
	}

	if err = rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}
