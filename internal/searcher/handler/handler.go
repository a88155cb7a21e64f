// Package handler exposes the searcher over HTTP and JSON RPC.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/snapshot"
	apperrors "github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/rpc"
)

// SearchExecutor is satisfied by *executor.Executor.
type SearchExecutor interface {
	Normalize(req proto.SearchRequest) (proto.SearchRequest, error)
	Search(ctx context.Context, req proto.SearchRequest) (*proto.SearchResponse, error)
	Stats(ctx context.Context) (*proto.StatsResponse, error)
}

// Index is satisfied by *snapshot.Holder.
type Index interface {
	Current() *snapshot.Snapshot
	Reload(ctx context.Context) (bool, string, error)
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithAnalytics publishes search events through collector and records them
// in the local aggregator served at /api/v1/analytics.
func WithAnalytics(collector *analytics.Collector, aggregator *analytics.Aggregator) Option {
	return func(h *Handler) {
		h.collector = collector
		h.aggregator = aggregator
	}
}

type Handler struct {
	executor   SearchExecutor
	index      Index
	cache      *cache.QueryCache
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	logger     *slog.Logger
}

func New(exec SearchExecutor, index Index, opts ...Option) *Handler {
	h := &Handler{
		executor: exec,
		index:    index,
		logger:   slog.Default().With("component", "search-handler"),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes registers the HTTP API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/admin/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	if h.aggregator != nil {
		mux.Handle("GET /api/v1/analytics", h.aggregator)
	}
}

// RegisterRPC exposes SearchService on s.
func (h *Handler) RegisterRPC(s *rpc.Server) {
	rpc.Handle(s, "SearchService.Search", h.search)
	rpc.Handle(s, "SearchService.Stats", func(ctx context.Context, _ struct{}) (*proto.StatsResponse, error) {
		return h.executor.Stats(ctx)
	})
	rpc.Handle(s, "SearchService.Reload", h.reload)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	req := proto.SearchRequest{Query: params.Get("q")}
	var err error
	if req.Page, err = intParam(params.Get("page")); err != nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "page must be an integer"))
		return
	}
	if req.Count, err = intParam(params.Get("count")); err != nil {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "count must be an integer"))
		return
	}

	resp, err := h.search(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// search is shared by HTTP and RPC: cache lookup, execution, analytics.
func (h *Handler) search(ctx context.Context, req proto.SearchRequest) (*proto.SearchResponse, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	req, err := h.executor.Normalize(req)
	if err != nil {
		return nil, err
	}
	q := parser.Parse(req.Query)

	compute := func(ctx context.Context) (*proto.SearchResponse, error) {
		return h.executor.Search(ctx, req)
	}
	var resp *proto.SearchResponse
	snap := h.index.Current()
	if h.cache != nil && snap != nil && !q.Empty() {
		resp, err = h.cache.GetOrCompute(ctx, cache.Key{
			Generation: snap.Generation,
			Query:      q,
			Page:       req.Page,
			Count:      req.Count,
		}, compute)
	} else {
		resp, err = compute(ctx)
	}
	if err != nil {
		log.Error("search failed", "query", req.Query, "error", err)
		return nil, err
	}
	// a shared or cached page echoes whichever spelling computed it first
	resp.Query = req.Query
	if resp.CacheHit {
		resp.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	}

	log.Info("search completed",
		"query", q.String(),
		"query_type", q.Type(),
		"total_hits", resp.TotalHits,
		"returned", len(resp.Results),
		"cache_hit", resp.CacheHit,
		"latency_ms", resp.LatencyMs,
	)
	h.track(ctx, q, resp)
	return resp, nil
}

func (h *Handler) track(ctx context.Context, q *parser.Query, resp *proto.SearchResponse) {
	if h.collector == nil && h.aggregator == nil {
		return
	}
	eventType := analytics.EventSearch
	if resp.TotalHits == 0 {
		eventType = analytics.EventZeroResult
	}
	event := analytics.SearchEvent{
		Type:       eventType,
		Query:      resp.Query,
		QueryType:  q.Type(),
		Domain:     q.Domain,
		Page:       resp.Page,
		TotalHits:  resp.TotalHits,
		Returned:   len(resp.Results),
		LatencyMs:  resp.LatencyMs,
		CacheHit:   resp.CacheHit,
		Generation: resp.Generation,
		Timestamp:  time.Now().UTC(),
		RequestID:  middleware.GetRequestID(ctx),
	}
	h.collector.Track(event)
	if h.aggregator != nil {
		h.aggregator.Record(event)
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.executor.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	var req proto.ReloadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid reload request body"))
			return
		}
	}
	resp, err := h.reload(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) reload(ctx context.Context, req proto.ReloadRequest) (*proto.ReloadResponse, error) {
	swapped, gen, err := h.index.Reload(ctx)
	if err != nil {
		h.logger.Error("reload failed", "reason", req.Reason, "error", err)
		return nil, apperrors.Newf(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "reload failed: %v", err)
	}
	h.logger.Info("reload requested", "reason", req.Reason, "swapped", swapped, "generation", gen)
	return &proto.ReloadResponse{Swapped: swapped, Generation: gen}, nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context(), r.URL.Query().Get("generation"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its HTTP status. Internal errors are not echoed to
// the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "search failed"
	}
	h.writeJSON(w, status, proto.ErrorResponse{Error: msg, Code: apperrors.Code(err)})
}
