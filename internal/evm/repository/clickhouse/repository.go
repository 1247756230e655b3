// Package clickhouse implements the transaction sink and read queries on ClickHouse.
package clickhouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

type Repository struct {
	conn    conn
	metrics Metrics
}

func NewRepository(dsn string, metrics Metrics) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}

	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	c, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	return &Repository{conn: nativeConn{conn: c}, metrics: metrics}, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.conn.Close()
}

// nativeConn narrows driver.Conn to what the repository uses.
type nativeConn struct {
	conn driver.Conn
}

func (c nativeConn) PrepareBatch(ctx context.Context, query string) (batch, error) {
	b, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c nativeConn) Query(ctx context.Context, query string, args ...any) (rows, error) {
	rs, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (c nativeConn) Close() error {
	return c.conn.Close()
}
