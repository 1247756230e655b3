// Package batcher provides a generic pull-based batch assembler.
package batcher

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

// Source yields items one at a time and returns io.EOF once exhausted.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// Batcher pulls items from a Source and hands them out in batches of at most flushSize.
// Nothing is read from the source until a batch is requested.
type Batcher[T any] struct {
	source    Source[T]
	flushSize int
	logger    *zap.Logger

	drained bool
	batches int
}

// New constructs a Batcher.
func New[T any](logger *zap.Logger, source Source[T], flushSize int) *Batcher[T] {
	if flushSize <= 0 {
		flushSize = 1
	}
	return &Batcher[T]{
		logger:    logger,
		source:    source,
		flushSize: flushSize,
	}
}

// NextBatch returns the next batch. The last batch may be shorter than flushSize;
// after it, NextBatch returns io.EOF. Any other source error is returned as is and
// the partially assembled batch is discarded.
func (b *Batcher[T]) NextBatch(ctx context.Context) ([]T, error) {
	if b.drained {
		return nil, io.EOF
	}

	buf := make([]T, 0, b.flushSize)
	for len(buf) < b.flushSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, err := b.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			b.drained = true
			break
		}
		if err != nil {
			return nil, err
		}
		buf = append(buf, item)
	}

	if len(buf) == 0 {
		return nil, io.EOF
	}

	b.batches++
	b.logger.Debug("batch assembled", zap.Int("size", len(buf)), zap.Int("batch", b.batches))
	return buf, nil
}

// Drain collects every remaining batch.
func (b *Batcher[T]) Drain(ctx context.Context) ([][]T, error) {
	var out [][]T
	for {
		batch, err := b.NextBatch(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, batch)
	}
}
