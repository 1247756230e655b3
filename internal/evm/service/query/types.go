package query

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Store interface {
		TransactionsByAddress(ctx context.Context, address string, order model.Order, limit, offset uint64) ([]model.Transaction, error)
		TransactionValueTotal(ctx context.Context, address string) (string, error)
		CountTransactions(ctx context.Context, address string) (uint64, error)
	}
)
