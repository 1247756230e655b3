// Package query answers address lookups against the stored transactions.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
	"github.com/goodnatureofminers/blockinsight7000-evm/pkg/safe"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 1000
)

// ErrInvalidArgument marks a caller error such as a missing address or bad paging.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError carries the caller-facing reason for a rejected parameter.
// It matches ErrInvalidArgument.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return ErrInvalidArgument.Error() + ": " + e.Reason
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArgument(format string, args ...any) error {
	return &ArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// ListParams are the raw paging inputs; empty strings select the defaults.
type ListParams struct {
	Address string
	Page    string
	Limit   string
}

// ListResult is one page of an address's transactions.
type ListResult struct {
	Address              string              `json:"address"`
	Page                 uint64              `json:"page"`
	Limit                uint64              `json:"limit"`
	TotalValue           string              `json:"total_value"`
	PageTotalValue       string              `json:"page_total_value"`
	ElapsedTimeInSeconds float64             `json:"elapsed_time_in_seconds"`
	Data                 []model.Transaction `json:"data"`
}

// CountResult is the number of transactions touching an address.
type CountResult struct {
	Address              string  `json:"address"`
	TransactionCount     uint64  `json:"transaction_count"`
	ElapsedTimeInSeconds float64 `json:"elapsed_time_in_seconds"`
}

// Service validates lookups and dispatches them to the store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds a Service.
func NewService(store Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("query store is required")
	}
	return &Service{store: store, logger: logger, now: time.Now}, nil
}

// Transactions lists the address's transactions in the given order together with
// the all-time value total and the total of the returned page.
func (s *Service) Transactions(ctx context.Context, params ListParams, order model.Order) (ListResult, error) {
	started := s.now()

	address, err := normalizeAddress(params.Address)
	if err != nil {
		return ListResult{}, err
	}
	page, err := parsePositive("page", params.Page, DefaultPage)
	if err != nil {
		return ListResult{}, err
	}
	limit, err := parsePositive("limit", params.Limit, DefaultLimit)
	if err != nil {
		return ListResult{}, err
	}
	if limit > MaxLimit {
		return ListResult{}, invalidArgument("limit must not exceed %d", MaxLimit)
	}
	offset, err := safe.MulUint64(page-1, limit)
	if err != nil {
		return ListResult{}, invalidArgument("page %d is out of range", page)
	}

	var (
		txs   []model.Transaction
		total string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.TransactionsByAddress(gctx, address, order, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.TransactionValueTotal(gctx, address)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("list transactions failed", zap.String("address", address), zap.String("order", string(order)), zap.Error(err))
		return ListResult{}, err
	}

	if uint64(len(txs)) > limit {
		txs = txs[:limit]
	}
	if txs == nil {
		txs = []model.Transaction{}
	}

	pageTotal, err := sumValues(txs)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Address:              address,
		Page:                 page,
		Limit:                limit,
		TotalValue:           total,
		PageTotalValue:       pageTotal,
		ElapsedTimeInSeconds: s.elapsed(started),
		Data:                 txs,
	}, nil
}

// Count returns how many transactions the address sent or received.
func (s *Service) Count(ctx context.Context, rawAddress string) (CountResult, error) {
	started := s.now()

	address, err := normalizeAddress(rawAddress)
	if err != nil {
		return CountResult{}, err
	}

	count, err := s.store.CountTransactions(ctx, address)
	if err != nil {
		s.logger.Error("count transactions failed", zap.String("address", address), zap.Error(err))
		return CountResult{}, err
	}

	return CountResult{
		Address:              address,
		TransactionCount:     count,
		ElapsedTimeInSeconds: s.elapsed(started),
	}, nil
}

func (s *Service) elapsed(started time.Time) float64 {
	seconds := s.now().Sub(started).Seconds()
	return math.Round(seconds*1e6) / 1e6
}

func normalizeAddress(raw string) (string, error) {
	address := strings.ToLower(strings.TrimSpace(raw))
	if address == "" {
		return "", invalidArgument("Address is required")
	}
	return address, nil
}

func parsePositive(name, raw string, def uint64) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, invalidArgument("%s must be a positive integer", name)
	}
	return v, nil
}

func sumValues(txs []model.Transaction) (string, error) {
	sum := new(big.Int)
	for _, tx := range txs {
		v, ok := new(big.Int).SetString(tx.Value, 10)
		if !ok {
			return "", fmt.Errorf("sum page value: %q is not an integer", tx.Value)
		}
		sum.Add(sum, v)
	}
	return sum.String(), nil
}
