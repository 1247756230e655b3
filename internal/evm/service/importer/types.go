package importer

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Sink interface {
		InsertTransactions(ctx context.Context, txs []model.Transaction) error
	}
	Metrics interface {
		ObserveFile(err error, inserted, skipped int, started time.Time)
	}
)
