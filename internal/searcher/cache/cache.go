// Package cache keeps rendered result pages in Redis, keyed by the served
// generation so a snapshot swap never serves stale pages.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/proto"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CountByPattern(ctx context.Context, pattern string) (int64, error)
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one result page.
type Key struct {
	Generation string
	Query      *parser.Query
	Page       int
	Count      int
}

// String hashes the canonical query so equivalent spellings share an entry.
func (k Key) String() string {
	raw := fmt.Sprintf("%s|%s|page=%d|count=%d", k.Generation, k.Query.String(), k.Page, k.Count)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, k.Generation, sum[:16])
}

type Stats struct {
	Hits    int64                      `json:"hits"`
	Misses  int64                      `json:"misses"`
	Keys    int64                      `json:"keys"`
	Breaker resilience.BreakerSnapshot `json:"breaker"`
}

type Option func(*QueryCache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) { c.metrics = m }
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps store. Store errors trip a breaker, after which the cache is
// bypassed until Redis recovers.
func New(store Store, ttl time.Duration, opts ...Option) *QueryCache {
	c := &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
	for _, o := range opts {
		o(c)
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, pkgredis.ErrMiss)
		},
		OnStateChange: func(name string, _, to resilience.State) {
			c.metrics.BreakerState(name, int(to))
		},
	})
	return c
}

func (c *QueryCache) get(ctx context.Context, key string) (*proto.SearchResponse, bool) {
	data, err := resilience.Do(c.breaker, func() ([]byte, error) {
		return c.store.GetBytes(ctx, key)
	})
	if err != nil {
		if !errors.Is(err, pkgredis.ErrMiss) && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var resp proto.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (c *QueryCache) set(ctx context.Context, key string, resp *proto.SearchResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached page for key or computes and stores it.
// Concurrent misses on one key share a single computation. The shared
// computation runs detached from any one caller's cancellation; compute is
// expected to bound itself.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key Key,
	compute func(ctx context.Context) (*proto.SearchResponse, error),
) (*proto.SearchResponse, error) {
	k := key.String()
	if resp, ok := c.get(ctx, k); ok {
		c.hit()
		resp.CacheHit = true
		return resp, nil
	}
	flightCtx := context.WithoutCancel(ctx)
	val, err, _ := c.group.Do(k, func() (interface{}, error) {
		resp, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		c.set(flightCtx, k, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	c.miss()
	// callers sharing a flight get their own copy to stamp
	resp := *val.(*proto.SearchResponse)
	return &resp, nil
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	c.metrics.CacheHit()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss()
}

// Invalidate drops every cached page. An empty generation means all
// generations.
func (c *QueryCache) Invalidate(ctx context.Context, generation string) (int64, error) {
	pattern := keyPrefix + "*"
	if generation != "" {
		pattern = keyPrefix + generation + ":*"
	}
	deleted, err := c.store.FlushByPattern(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "pattern", pattern, "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Breaker: c.breaker.Snapshot(),
	}
	n, err := c.store.CountByPattern(ctx, keyPrefix+"*")
	if err != nil {
		c.logger.Warn("counting cache keys failed", "error", err)
		n = -1
	}
	s.Keys = n
	return s
}
