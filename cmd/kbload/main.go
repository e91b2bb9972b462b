// Command kbload bulk-loads text, markdown or JSONL files into the knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kailas-cloud/voxhome/internal/bootstrap"
	"github.com/kailas-cloud/voxhome/internal/config"
	dbRedis "github.com/kailas-cloud/voxhome/internal/db/redis"
	logpkg "github.com/kailas-cloud/voxhome/internal/logger"
	"github.com/kailas-cloud/voxhome/internal/metrics"
	embeddinguc "github.com/kailas-cloud/voxhome/internal/usecase/embedding"
	"github.com/kailas-cloud/voxhome/internal/usecase/knowledge"
)

func main() {
	env := cli.StringP("env", "e", config.GetEnv(), "Config environment (local, prod)")
	source := cli.StringP("source", "s", "", "Source tag stored in document metadata")
	replace := cli.Bool("replace", false, "Remove documents of --source before loading")
	chunk := cli.Int("chunk", 500, "Maximum runes per text chunk")
	workers := cli.IntP("workers", "w", 4, "Concurrent embedding batches")
	batchSize := cli.IntP("batch", "b", 32, "Documents per embedding call")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kbload [flags] FILE...\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	if cli.NArg() == 0 {
		cli.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	logger, err := logpkg.NewLogger(*env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, cli.Args(), options{
		Source:    *source,
		Replace:   *replace,
		Chunk:     *chunk,
		Workers:   *workers,
		BatchSize: *batchSize,
	}, logger); err != nil {
		logger.Error("Load failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, files []string, opts options, logger *zap.Logger) error {
	var items []knowledge.Input
	for _, path := range files {
		parsed, err := readFile(path, opts.Chunk)
		if err != nil {
			return err
		}
		logger.Info("Parsed file", zap.String("path", path), zap.Int("items", len(parsed)))
		items = append(items, parsed...)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer store.Close()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	gateway := embeddinguc.NewGateway(bootstrap.Embedder(cfg, store, logger), logger)

	vectors := bootstrap.VectorStore(cfg, store, logger)
	if err := vectors.Load(ctx); err != nil {
		return fmt.Errorf("load vector store: %w", err)
	}
	// Device sync is not used here.
	kb := knowledge.New(vectors, gateway, nil, cfg.VectorStore.Type, logger)

	start := time.Now()
	rep, err := load(ctx, kb, items, opts, logger)
	logger.Info("Load finished",
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Int("removed", rep.Removed),
		zap.Int("documents", vectors.Size()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return err
}
