// Command indexer builds one index generation from crawl output and
// publishes it by rewriting CURRENT.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-crawl data/crawl] [-index data/index]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/buildlog"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/notify"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	crawlDir := flag.String("crawl", "", "crawl output directory (overrides config)")
	indexRoot := flag.String("index", "", "index root directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *crawlDir != "" {
		cfg.Crawl.Dir = *crawlDir
	}
	if *indexRoot != "" {
		cfg.Index.Root = *indexRoot
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build",
		"crawl_dir", cfg.Crawl.Dir,
		"index_root", cfg.Index.Root,
		"workers", cfg.Index.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		live := health.NewChecker()
		shutdown := metrics.StartServer("doc-search indexer", cfg.Metrics.Port,
			metrics.Mount{Path: "/health/live", Handler: live.LiveHandler()},
		)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	opts := []indexer.Option{indexer.WithMetrics(m)}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, build history disabled", "error", err)
		} else {
			defer db.Close()
			store, err := buildlog.NewStore(ctx, db)
			if err != nil {
				slog.Warn("build history schema failed, history disabled", "error", err)
			} else {
				opts = append(opts, indexer.WithHistory(store))
			}
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		opts = append(opts, indexer.WithNotifier(notify.New(producer)))
		slog.Info("index notifications enabled", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	builder := indexer.NewBuilder(indexer.OptionsFromConfig(cfg), opts...)
	report, err := builder.Build(ctx)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	slog.Info("index build complete",
		"generation", report.Generation,
		"dir", report.Dir,
		"pages", report.Manifest.Pages,
		"skipped", report.Manifest.Skipped,
		"domains", len(report.Manifest.Domains),
		"size_bytes", report.Manifest.SizeBytes,
		"pruned", len(report.Pruned),
	)
}
