// Command searcher serves the current index generation over HTTP and JSON
// RPC, swapping in new generations as they are published.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml] [-index data/index] [-addr :8080]
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
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/rpc"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	indexPath := flag.String("index", "", "index root or generation directory (overrides config)")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *indexPath != "" {
		cfg.Index.Root = *indexPath
	}
	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", cfg.Server.Port)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "addr", listenAddr, "index", cfg.Index.Root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer("doc-search searcher", cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	holder := snapshot.NewHolder(cfg.Index.Root, nil, m)
	if _, gen, err := holder.Reload(ctx); err != nil {
		slog.Error("failed to open index", "path", cfg.Index.Root, "error", err)
		os.Exit(1)
	} else {
		slog.Info("index loaded", "generation", gen)
	}
	defer holder.Close()

	var wg sync.WaitGroup
	if cfg.Index.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := holder.Watch(ctx); err != nil {
				slog.Error("index watcher stopped", "error", err)
			}
		}()
	}

	tracer := tracing.NewTracer(cfg.Tracing.Enabled, cfg.Tracing.SampleRate)
	exec := executor.New(holder, executor.SettingsFromConfig(cfg),
		executor.WithMetrics(m),
		executor.WithTracer(tracer),
	)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap := holder.Current()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no generation loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: snap.Generation}
	})

	opts := []handler.Option{}
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			opts = append(opts, handler.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, cache.WithMetrics(m))))
			checker.Register("redis", health.Ping(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize, 100, 0)
		collector.Start(ctx)
		defer collector.Close()

		// every replica must see every index.complete event
		host, _ := os.Hostname()
		reloads := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, holder.HandleIndexComplete(),
			kafka.WithGroupID(fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, host)),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reloads.Start(ctx); err != nil {
				slog.Error("index event consumer stopped", "error", err)
			}
		}()
	}
	opts = append(opts, handler.WithAnalytics(collector, aggregator))
	h := handler.New(exec, holder, opts...)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		mws = append(mws, middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         listenAddr,
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.RPC.Port > 0 {
		rpcServer := rpc.NewServer(ctx)
		h.RegisterRPC(rpcServer)
		go func() {
			if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
		slog.Info("rpc server listening", "port", cfg.RPC.Port, "methods", rpcServer.MethodCount())
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	wg.Wait()
	slog.Info("search service stopped")
}
