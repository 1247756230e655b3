package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/ethereum"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/repository/clickhouse"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/service/importer"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/service/monitor"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/service/query"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/transport"
)

type config struct {
	Import   bool `long:"import" env:"EVM_INGESTER_IMPORT" description:"import archives from the source directory on startup (on by default, EVM_INGESTER_IMPORT=false disables)"`
	Realtime bool `long:"realtime" env:"EVM_INGESTER_REALTIME" description:"follow new blocks from the node (on by default, EVM_INGESTER_REALTIME=false disables)"`
	API      bool `long:"api" env:"EVM_INGESTER_API" description:"serve the read API (on by default, EVM_INGESTER_API=false disables)"`

	Chain         string `long:"chain" env:"EVM_INGESTER_CHAIN" description:"chain name used as metrics label" default:"ethereum"`
	ClickhouseDSN string `long:"clickhouse-dsn" env:"EVM_INGESTER_CLICKHOUSE_DSN" description:"ClickHouse DSN" required:"true"`

	RPCURL       string        `long:"rpc-url" env:"EVM_INGESTER_RPC_URL" description:"node URL (ws/wss subscribes, http/https polls)" default:"ws://127.0.0.1:8546"`
	RPCTimeout   time.Duration `long:"rpc-timeout" env:"EVM_INGESTER_RPC_TIMEOUT" description:"per-call node timeout, 0 disables" default:"0s"`
	PollInterval time.Duration `long:"poll-interval" env:"EVM_INGESTER_POLL_INTERVAL" description:"head polling interval for http nodes" default:"4s"`

	DataDir       string `long:"data-dir" env:"EVM_INGESTER_DATA_DIR" description:"base directory for archives" default:"/srv/data"`
	SourceDir     string `long:"source-dir" env:"EVM_INGESTER_SOURCE_DIR" description:"archives to import, relative to data dir" default:"source"`
	ProcessedDir  string `long:"processed-dir" env:"EVM_INGESTER_PROCESSED_DIR" description:"imported archives, relative to data dir" default:"processed"`
	FailedDir     string `long:"failed-dir" env:"EVM_INGESTER_FAILED_DIR" description:"failed archives, relative to data dir" default:"failed"`
	ArchiveSuffix string `long:"archive-suffix" env:"EVM_INGESTER_ARCHIVE_SUFFIX" description:"archive file name suffix" default:".tar.gz"`

	HydrationWorkers int `long:"hydration-workers" env:"EVM_INGESTER_HYDRATION_WORKERS" description:"concurrent transaction fetches per block" default:"16"`
	InsertRPS        int `long:"insert-rps" env:"EVM_INGESTER_INSERT_RPS" description:"max block inserts per second, 0 is unlimited" default:"0"`

	ListenAddr  string `long:"listen-addr" env:"EVM_INGESTER_LISTEN_ADDR" description:"read API address" default:":3000"`
	MetricsAddr string `long:"metrics-addr" env:"EVM_INGESTER_METRICS_ADDR" description:"address for metrics server" default:":2112"`
	LogLevel    string `long:"log-level" env:"EVM_INGESTER_LOG_LEVEL" description:"debug selects the development logger, otherwise a production logger at this level" default:"info"`
}

func main() {
	cfg := config{Import: true, Realtime: true, API: true}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.With(zap.String("chain", cfg.Chain))

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("evm ingester failed", zap.Error(err))
	}
	logger.Info("evm ingester stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	if !cfg.Import && !cfg.Realtime && !cfg.API {
		return errors.New("no mode enabled, set --import, --realtime or --api")
	}

	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	repo, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository(cfg.Chain))
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("close repository", zap.Error(err))
		}
	}()

	if cfg.Import {
		if err := runImport(ctx, cfg, repo, logger.Named("importer")); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Realtime {
		g.Go(func() error {
			return runRealtime(gctx, cfg, repo, logger.Named("monitor"))
		})
	}
	if cfg.API {
		g.Go(func() error {
			return runAPI(gctx, cfg, repo, logger.Named("api"))
		})
	}
	return g.Wait()
}

func runImport(ctx context.Context, cfg config, repo *clickhouse.Repository, logger *zap.Logger) error {
	svc, err := importer.NewService(importer.Config{
		SourceDir:    underDataDir(cfg.DataDir, cfg.SourceDir),
		ProcessedDir: underDataDir(cfg.DataDir, cfg.ProcessedDir),
		FailedDir:    underDataDir(cfg.DataDir, cfg.FailedDir),
		Suffix:       cfg.ArchiveSuffix,
	}, repo, metrics.NewArchiveImporter(cfg.Chain), logger)
	if err != nil {
		return fmt.Errorf("init importer: %w", err)
	}

	if _, err := svc.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("import archives: %w", err)
	}
	return nil
}

func runRealtime(ctx context.Context, cfg config, repo *clickhouse.Repository, logger *zap.Logger) error {
	client, err := ethereum.Dial(ctx, cfg.RPCURL, ethereum.Options{
		PollInterval: cfg.PollInterval,
		CallTimeout:  cfg.RPCTimeout,
	}, metrics.NewRPCClient(cfg.Chain), logger.Named("ethereum"))
	if err != nil {
		return fmt.Errorf("init node client: %w", err)
	}
	defer client.Close()

	svc, err := monitor.NewService(monitor.Config{
		HydrationWorkers: cfg.HydrationWorkers,
		InsertRPS:        cfg.InsertRPS,
	}, client, repo, metrics.NewRealtimeMonitor(cfg.Chain), logger)
	if err != nil {
		return fmt.Errorf("init realtime monitor: %w", err)
	}
	return svc.Run(ctx)
}

func runAPI(ctx context.Context, cfg config, repo *clickhouse.Repository, logger *zap.Logger) error {
	querier, err := query.NewService(repo, logger.Named("query"))
	if err != nil {
		return fmt.Errorf("init query service: %w", err)
	}
	handler, err := transport.NewTransactionsHandler(querier, metrics.NewHTTPServer(), logger)
	if err != nil {
		return fmt.Errorf("init transactions handler: %w", err)
	}

	mux := http.NewServeMux()
	handler.Register(mux)

	s := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down the http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown http server", zap.Error(err))
		}
	}()

	logger.Info("Starting HTTP server", zap.String("addr", cfg.ListenAddr))
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}

func underDataDir(dataDir, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(dataDir, dir)
}
