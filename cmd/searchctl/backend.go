package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/rpc"
)

// backend answers CLI commands from a local index or a remote searcher.
type backend interface {
	Search(ctx context.Context, req proto.SearchRequest) (*proto.SearchResponse, error)
	Stats(ctx context.Context) (*proto.StatsResponse, error)
	Reload(ctx context.Context, reason string) (*proto.ReloadResponse, error)
	Close() error
}

func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.indexPath != "" {
		cfg.Index.Root = g.indexPath
	}
	// keep stdout clean for results
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), "warn", cfg.Logging.Format))
	return cfg, nil
}

func openBackend(cmd *cobra.Command, g *globalFlags) (backend, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return nil, err
	}
	if g.rpcAddr != "" {
		client, err := rpc.Dial(ctx, g.rpcAddr)
		if err != nil {
			return nil, err
		}
		return &remoteBackend{client: client}, nil
	}

	holder := snapshot.NewHolder(cfg.Index.Root, nil, nil)
	if _, _, err := holder.Reload(ctx); err != nil {
		return nil, fmt.Errorf("opening index %s: %w", cfg.Index.Root, err)
	}
	return &localBackend{
		holder: holder,
		exec:   executor.New(holder, executor.SettingsFromConfig(cfg)),
	}, nil
}

type localBackend struct {
	holder *snapshot.Holder
	exec   *executor.Executor
}

func (b *localBackend) Search(ctx context.Context, req proto.SearchRequest) (*proto.SearchResponse, error) {
	return b.exec.Search(ctx, req)
}

func (b *localBackend) Stats(ctx context.Context) (*proto.StatsResponse, error) {
	return b.exec.Stats(ctx)
}

func (b *localBackend) Reload(ctx context.Context, _ string) (*proto.ReloadResponse, error) {
	swapped, gen, err := b.holder.Reload(ctx)
	if err != nil {
		return nil, err
	}
	return &proto.ReloadResponse{Swapped: swapped, Generation: gen}, nil
}

func (b *localBackend) Close() error {
	return b.holder.Close()
}

type remoteBackend struct {
	client *rpc.Client
}

func (b *remoteBackend) Search(ctx context.Context, req proto.SearchRequest) (*proto.SearchResponse, error) {
	var resp proto.SearchResponse
	if err := b.client.Call(ctx, "SearchService.Search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *remoteBackend) Stats(ctx context.Context) (*proto.StatsResponse, error) {
	var resp proto.StatsResponse
	if err := b.client.Call(ctx, "SearchService.Stats", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *remoteBackend) Reload(ctx context.Context, reason string) (*proto.ReloadResponse, error) {
	var resp proto.ReloadResponse
	if err := b.client.Call(ctx, "SearchService.Reload", proto.ReloadRequest{Reason: reason}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *remoteBackend) Close() error {
	return b.client.Close()
}
