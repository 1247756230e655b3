package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

var errWriterStopped = errors.New("block writer stopped")

// blockWriter serializes block inserts on a single goroutine.
type blockWriter struct {
	sink            Sink
	metrics         Metrics
	limiter         ratelimit.Limiter
	logger          *zap.Logger
	shutdownTimeout time.Duration

	queue chan model.BlockBatch
	done  chan struct{}

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
}

func newBlockWriter(sink Sink, metrics Metrics, insertRPS int, logger *zap.Logger) *blockWriter {
	limiter := ratelimit.NewUnlimited()
	if insertRPS > 0 {
		limiter = ratelimit.New(insertRPS)
	}

	return &blockWriter{
		sink:            sink,
		metrics:         metrics,
		limiter:         limiter,
		logger:          logger,
		shutdownTimeout: writerShutdownTimeout,
		queue:           make(chan model.BlockBatch, writerQueueCapacity),
		done:            make(chan struct{}),
	}
}

// Start launches the insert loop. Inserts run on a context detached from ctx so
// blocks already queued when ctx ends can still be drained by Stop.
func (w *blockWriter) Start(ctx context.Context) {
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	go w.loop(wctx)
}

// WriteBlock enqueues b, blocking while the queue is full.
func (w *blockWriter) WriteBlock(ctx context.Context, b model.BlockBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return errWriterStopped
	}

	select {
	case w.queue <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new blocks and waits for queued ones up to the shutdown timeout.
func (w *blockWriter) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	cancel := w.cancel
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	defer cancel()

	timer := time.NewTimer(w.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-w.done:
	case <-timer.C:
		w.logger.Warn("shutdown timeout reached, dropping queued blocks", zap.Int("queued", len(w.queue)))
		cancel()
		<-w.done
	}
}

func (w *blockWriter) loop(ctx context.Context) {
	defer close(w.done)

	for b := range w.queue {
		if ctx.Err() != nil {
			w.logger.Warn("dropping queued block", zap.Uint64("block", b.Number), zap.Int("records", len(b.Records)))
			continue
		}
		w.limiter.Take()
		w.insert(ctx, b)
	}
}

func (w *blockWriter) insert(ctx context.Context, b model.BlockBatch) {
	started := time.Now()
	err := w.sink.InsertTransactions(ctx, b.Records)
	w.metrics.ObserveInsert(err, started)
	if err != nil {
		w.logger.Error("insert block failed",
			zap.Uint64("block", b.Number),
			zap.Int("records", len(b.Records)),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("block inserted",
		zap.Uint64("block", b.Number),
		zap.String("hash", b.Hash),
		zap.Int("records", len(b.Records)),
		zap.Duration("took", time.Since(started)),
	)
}
