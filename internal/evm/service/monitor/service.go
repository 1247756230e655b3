// Package monitor follows the chain head and stores every new block's transactions.
package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/clock"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/chain"
)

var errSubscriptionClosed = errors.New("head subscription closed")

// Config tunes the realtime pipeline.
type Config struct {
	// HydrationWorkers bounds concurrent transaction fetches per block.
	HydrationWorkers int
	// InsertRPS caps block inserts per second; zero disables the limit.
	InsertRPS int
}

// Service subscribes to new heads and writes each block's valid transactions.
type Service struct {
	logger         *zap.Logger
	feed           Feed
	metrics        Metrics
	sleep          clock.SleepFunc
	backoff        clock.Backoff
	blockProcessor BlockProcessor
	blockWriter    BlockWriter
}

// NewService builds a Service with dependencies.
func NewService(cfg Config, feed Feed, sink Sink, metrics Metrics, logger *zap.Logger) (*Service, error) {
	if feed == nil {
		return nil, errors.New("realtime monitor feed is required")
	}
	if sink == nil {
		return nil, errors.New("realtime monitor sink is required")
	}
	if metrics == nil {
		return nil, errors.New("realtime monitor metrics is required")
	}
	if cfg.HydrationWorkers <= 0 {
		cfg.HydrationWorkers = defaultHydrationWorkers
	}

	return &Service{
		logger:  logger,
		feed:    feed,
		metrics: metrics,
		sleep:   clock.SleepWithContext,
		backoff: clock.Backoff{Initial: resubscribeDelay, Max: maxResubscribeDelay},
		blockProcessor: &blockProcessor{
			feed:        feed,
			workerCount: cfg.HydrationWorkers,
			metrics:     metrics,
			logger:      logger.Named("blockProcessor"),
		},
		blockWriter: newBlockWriter(sink, metrics, cfg.InsertRPS, logger.Named("blockWriter")),
	}, nil
}

// Run follows the chain until ctx is canceled. Only a failed initial handshake
// is returned as an error; subscription failures are retried with backoff.
func (s *Service) Run(ctx context.Context) error {
	height, err := s.feed.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("realtime handshake: %w", err)
	}
	s.logger.Info("connected to node", zap.Uint64("latest_height", height))

	s.blockWriter.Start(ctx)
	defer s.blockWriter.Stop()

	for {
		err := s.run(ctx)
		if ctx.Err() != nil {
			s.logger.Info("realtime monitor stopping")
			return nil
		}

		delay := s.backoff.Next()
		s.metrics.ObserveResubscribe()
		s.logger.Warn("head subscription failed, resubscribing", zap.Error(err), zap.Duration("sleep", delay))
		if err := s.sleep(ctx, delay); err != nil {
			s.logger.Info("realtime monitor stopping")
			return nil
		}
	}
}

// run consumes one subscription until it fails or ctx ends.
func (s *Service) run(ctx context.Context) error {
	heads := make(chan chain.Head, headBufferSize)
	sub, err := s.feed.SubscribeHeads(ctx, heads)
	if err != nil {
		return fmt.Errorf("subscribe heads: %w", err)
	}
	defer sub.Unsubscribe()
	s.logger.Info("subscribed to new heads")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errSubscriptionClosed
			}
			return err
		case head := <-heads:
			s.backoff.Reset()
			s.handleHead(ctx, head)
		}
	}
}

func (s *Service) handleHead(ctx context.Context, head chain.Head) {
	logger := s.logger.With(zap.Uint64("block", head.Number), zap.String("hash", head.Hash))
	logger.Debug("new head")

	batch, err := s.blockProcessor.Process(ctx, head)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("process block failed, skipping", zap.Error(err))
		}
		return
	}
	if len(batch.Records) == 0 {
		logger.Debug("no valid transactions in block")
		return
	}

	if err := s.blockWriter.WriteBlock(ctx, batch); err != nil && ctx.Err() == nil {
		logger.Error("enqueue block failed", zap.Error(err))
	}
}
