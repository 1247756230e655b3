package clickhouse

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"context"
	"time"
)

type (
	// Metrics observes repository operations.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
		ObserveInsertedRows(rows int)
	}
	conn interface {
		PrepareBatch(ctx context.Context, query string) (batch, error)
		Query(ctx context.Context, query string, args ...any) (rows, error)
		Close() error
	}
	batch interface {
		Append(v ...any) error
		Abort() error
		Send() error
	}
	rows interface {
		Next() bool
		Scan(dest ...any) error
		Err() error
		Close() error
	}
)
