package transport

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/service/query"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Querier interface {
		Transactions(ctx context.Context, params query.ListParams, order model.Order) (query.ListResult, error)
		Count(ctx context.Context, address string) (query.CountResult, error)
	}
	Metrics interface {
		Observe(route string, code int, started time.Time)
	}
)
