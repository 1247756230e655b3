package clickhouse

import (
	"context"
	"fmt"
	"time"
)

// CountTransactions returns how many transactions address sent or received.
func (r *Repository) CountTransactions(ctx context.Context, address string) (count uint64, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("count_transactions", err, start)
	}()

	const query = `
SELECT count()
FROM evm_transactions FINAL
WHERE from_address = ? OR to_address = ?`

	rs, err := r.conn.Query(ctx, query, address, address)
	if err != nil {
		return 0, fmt.Errorf("query transaction count: %w", err)
	}
	defer func() {
		if cerr := rs.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	if rs.Next() {
		if err = rs.Scan(&count); err != nil {
			return 0, fmt.Errorf("scan transaction count: %w", err)
		}
	}
	if err = rs.Err(); err != nil {
		return 0, fmt.Errorf("iterate transaction count: %w", err)
	}
	return count, nil
}
