// Package importer loads compressed transaction archives into the sink.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/archive"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/relocator"
	"github.com/goodnatureofminers/blockinsight7000-evm/pkg/batcher"
)

// Config locates the archive directories.
type Config struct {
	SourceDir    string
	ProcessedDir string
	FailedDir    string
	Suffix       string
	BatchSize    int
}

// DirsUnder returns a Config with the default directory names below base.
func DirsUnder(base string) Config {
	return Config{
		SourceDir:    filepath.Join(base, defaultSourceDir),
		ProcessedDir: filepath.Join(base, defaultProcessedDir),
		FailedDir:    filepath.Join(base, defaultFailedDir),
		Suffix:       DefaultSuffix,
		BatchSize:    model.MaxBatchSize,
	}
}

// Summary counts the outcome of one Run.
type Summary struct {
	Files       int
	Processed   int
	Failed      int
	Inserted    int
	SkippedRows int
}

// Service imports every archive in the source directory once.
type Service struct {
	logger   *zap.Logger
	cfg      Config
	sink     Sink
	metrics  Metrics
	relocate func(sourcePath, destinationDir string) (string, error)
}

// NewService builds a Service.
func NewService(cfg Config, sink Sink, metrics Metrics, logger *zap.Logger) (*Service, error) {
	if cfg.SourceDir == "" || cfg.ProcessedDir == "" || cfg.FailedDir == "" {
		return nil, errors.New("importer source, processed and failed directories are required")
	}
	if sink == nil {
		return nil, errors.New("importer sink is required")
	}
	if metrics == nil {
		return nil, errors.New("importer metrics is required")
	}
	if cfg.Suffix == "" {
		cfg.Suffix = DefaultSuffix
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > model.MaxBatchSize {
		cfg.BatchSize = model.MaxBatchSize
	}

	return &Service{
		logger:   logger.With(zap.String("source", cfg.SourceDir)),
		cfg:      cfg,
		sink:     sink,
		metrics:  metrics,
		relocate: relocator.Relocate,
	}, nil
}

// Run processes the archives present at call time in directory order. Per-file
// failures are logged and counted; only an unreadable source directory or
// cancellation is returned as an error.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	files, err := s.listArchives()
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		s.logger.Info("no archives found", zap.String("suffix", s.cfg.Suffix))
		return Summary{}, nil
	}

	summary := Summary{Files: len(files)}
	s.logger.Info("importing archives", zap.Int("files", len(files)))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("import interrupted", zap.Int("remaining", summary.Files-summary.Processed-summary.Failed))
			return summary, err
		}
		s.process(ctx, filepath.Join(s.cfg.SourceDir, name), &summary)
	}

	if summary.Inserted == 0 {
		s.logger.Warn("import potentially failed: no records inserted",
			zap.Int("files", summary.Files),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped_rows", summary.SkippedRows),
		)
	} else {
		s.logger.Info("import finished",
			zap.Int("inserted", summary.Inserted),
			zap.Int("processed", summary.Processed),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped_rows", summary.SkippedRows),
		)
	}
	return summary, nil
}

func (s *Service) listArchives() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source directory %s: %w", s.cfg.SourceDir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), s.cfg.Suffix) {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}

func (s *Service) process(ctx context.Context, path string, summary *Summary) {
	logger := s.logger.With(zap.String("file", filepath.Base(path)))
	started := time.Now()

	inserted, skipped, err := s.importFile(ctx, path, logger)
	s.metrics.ObserveFile(err, inserted, skipped, started)
	summary.SkippedRows += skipped

	dest := s.cfg.ProcessedDir
	if err != nil {
		dest = s.cfg.FailedDir
		summary.Failed++
		logger.Error("archive import failed", zap.Error(err), zap.Int("skipped_rows", skipped))
	} else {
		summary.Processed++
		summary.Inserted += inserted
		logger.Info("archive imported",
			zap.Int("inserted", inserted),
			zap.Int("skipped_rows", skipped),
			zap.Duration("took", time.Since(started)),
		)
	}

	if _, err := s.relocate(path, dest); err != nil {
		logger.Error("relocate archive", zap.String("destination", dest), zap.Error(err))
	}
}

// importFile reads the whole archive and inserts it with a single sink call.
func (s *Service) importFile(ctx context.Context, path string, logger *zap.Logger) (inserted, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	reader, err := archive.NewReader(f, logger)
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batches, err := batcher.New[model.Transaction](logger.Named("batcher"), reader, s.cfg.BatchSize).Drain(ctx)
	if err != nil {
		return 0, reader.Skipped(), err
	}
	var records []model.Transaction
	for _, batch := range batches {
		records = append(records, batch...)
	}

	skipped = reader.Skipped()
	if len(records) == 0 {
		logger.Warn("archive has no valid records", zap.Int("rows", reader.Rows()))
		return 0, skipped, nil
	}

	if err := s.sink.InsertTransactions(ctx, records); err != nil {
		return 0, skipped, fmt.Errorf("insert %d records: %w", len(records), err)
	}
	return len(records), skipped, nil
}
