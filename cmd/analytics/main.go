// Command analytics runs the standalone analytics aggregator.
//
// It consumes search events and index.complete events from Kafka, keeps
// running aggregates in memory (latency percentiles, cache hit rate, top and
// zero-result queries, per-domain and per-query-type counts), snapshots them
// to PostgreSQL when configured, and serves GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	var saved <-chan struct{}
	var history http.HandlerFunc
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		checker.Register("postgres", health.Ping(db.Ping, false))

		store, err := aggregator.NewStore(ctx, db)
		if err != nil {
			slog.Error("failed to prepare analytics schema", "error", err)
			os.Exit(1)
		}
		if last, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not restore analytics snapshot", "error", err)
		} else if last != nil {
			agg.Restore(*last)
			slog.Info("analytics restored", "total_searches", last.TotalSearches)
		}
		saved = store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval, cfg.Analytics.SnapshotRetention)
		history = store.HistoryHandler()
	}

	var wg sync.WaitGroup
	consume := func(topic string, h kafka.MessageHandler) {
		c := kafka.NewConsumer(cfg.Kafka, topic, h)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Start(ctx); err != nil {
				slog.Error("consumer error", "topic", topic, "error", err)
			}
		}()
		slog.Info("consuming", "topic", topic)
	}
	if cfg.Kafka.Enabled {
		consume(cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
		consume(cfg.Kafka.Topics.IndexComplete, analytics.HandleIndexEvent(agg))
	} else {
		slog.Warn("kafka disabled, serving restored stats only")
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/analytics", agg)
	if history != nil {
		mux.HandleFunc("GET /api/v1/analytics/history", history)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	wg.Wait()
	if saved != nil {
		<-saved
	}
	slog.Info("analytics service stopped")
}
