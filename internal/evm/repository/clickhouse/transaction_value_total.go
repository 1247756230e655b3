package clickhouse

import (
	"context"
	"fmt"
	"time"
)

// TransactionValueTotal returns the exact decimal sum of value over every
// transaction sent or received by address.
func (r *Repository) TransactionValueTotal(ctx context.Context, address string) (total string, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("transaction_value_total", err, start)
	}()

	const query = `
SELECT toString(sum(value))
FROM evm_transactions FINAL
WHERE from_address = ? OR to_address = ?`

	rs, err := r.conn.Query(ctx, query, address, address)
	if err != nil {
		return "", fmt.Errorf("query transaction value total: %w", err)
	}
	defer func() {
		if cerr := rs.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	total = "0"
	if rs.Next() {
		if err = rs.Scan(&total); err != nil {
			return "", fmt.Errorf("scan transaction value total: %w", err)
		}
	}
	if err = rs.Err(); err != nil {
		return "", fmt.Errorf("iterate transaction value total: %w", err)
	}
	return total, nil
}
