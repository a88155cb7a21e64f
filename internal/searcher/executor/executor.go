// Package executor runs a query against the served snapshot: parse, fetch
// a candidate window by relevance, fuse with authority, paginate and cut
// snippets.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/tracing"
)

type Settings struct {
	AuthorityWeight float64
	CandidateWindow int
	MaxCandidates   int
	DefaultCount    int
	MaxCount        int
	MaxQueryLength  int
	Timeout         time.Duration
	Snippet         snippet.Config
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		AuthorityWeight: cfg.Ranking.AuthorityWeight,
		CandidateWindow: cfg.Ranking.CandidateWindow,
		MaxCandidates:   cfg.Ranking.MaxCandidates,
		DefaultCount:    cfg.Ranking.DefaultCount,
		MaxCount:        cfg.Ranking.MaxCount,
		MaxQueryLength:  cfg.Search.MaxQueryLength,
		Timeout:         cfg.Search.Timeout,
		Snippet: snippet.Config{
			MaxLength:     cfg.Snippet.MaxLength,
			ContextBefore: cfg.Snippet.ContextBefore,
		},
	}
}

func DefaultSettings() Settings {
	return Settings{
		AuthorityWeight: ranker.DefaultAuthorityWeight,
		CandidateWindow: 100,
		MaxCandidates:   1600,
		DefaultCount:    10,
		MaxCount:        50,
		MaxQueryLength:  parser.MaxQueryLength,
		Timeout:         500 * time.Millisecond,
		Snippet:         snippet.DefaultConfig(),
	}
}

// Source hands out the snapshot to search.
type Source interface {
	Acquire() (*snapshot.Snapshot, error)
}

type Option func(*Executor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func WithTracer(t *tracing.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

type Executor struct {
	source   Source
	settings Settings
	metrics  *metrics.Metrics
	tracer   *tracing.Tracer
	logger   *slog.Logger
}

func New(source Source, settings Settings, opts ...Option) *Executor {
	e := &Executor{
		source:   source,
		settings: settings,
		logger:   slog.Default().With("component", "query-executor"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Normalize validates a request and fills in the default count.
func (e *Executor) Normalize(req proto.SearchRequest) (proto.SearchRequest, error) {
	if limit := e.settings.MaxQueryLength; limit > 0 && len(req.Query) > limit {
		return req, apperrors.Newf(apperrors.ErrQueryTooLong, http.StatusRequestEntityTooLarge,
			"query exceeds %d bytes", limit)
	}
	if req.Page < 0 {
		return req, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "page must not be negative")
	}
	if req.Count < 0 {
		return req, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "count must not be negative")
	}
	if req.Count == 0 {
		req.Count = e.settings.DefaultCount
	}
	if req.Count > e.settings.MaxCount {
		req.Count = e.settings.MaxCount
	}
	// (page+1)*count must stay within MaxCandidates; divide so huge pages
	// cannot overflow.
	if limit := e.settings.MaxCandidates; limit > 0 && req.Page >= max(limit/req.Count, 1) {
		return req, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"page %d is beyond the first %d ranked results", req.Page, limit)
	}
	return req, nil
}

// Search answers one page of results. Zero matches is an empty page, not
// an error.
func (e *Executor) Search(ctx context.Context, req proto.SearchRequest) (*proto.SearchResponse, error) {
	start := time.Now()
	req, err := e.Normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "search", logger.RequestID(ctx))
	defer span.Finish()

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	q := parser.Parse(req.Query)
	parseSpan.End()
	span.SetAttr("query_type", q.Type())

	resp, err := resilience.Call(ctx, e.settings.Timeout, "search", func(ctx context.Context) (*proto.SearchResponse, error) {
		return e.execute(ctx, q, req)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "search timed out")
		}
		return nil, err
	}

	took := time.Since(start)
	resp.LatencyMs = float64(took.Microseconds()) / 1000
	e.metrics.ObserveSearch(q.Type(), false, len(resp.Results), took)
	e.logger.Debug("query executed",
		"query", q.String(),
		"total_hits", resp.TotalHits,
		"returned", len(resp.Results),
		"latency_ms", resp.LatencyMs,
	)
	return resp, nil
}

func (e *Executor) execute(ctx context.Context, q *parser.Query, req proto.SearchRequest) (*proto.SearchResponse, error) {
	snap, err := e.source.Acquire()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	resp := &proto.SearchResponse{
		Query:      req.Query,
		Page:       req.Page,
		Count:      req.Count,
		Generation: snap.Generation,
		Results:    []proto.SearchResult{},
	}
	if q.Empty() {
		return resp, nil
	}

	from := req.Page * req.Count
	need := from + req.Count

	searchCtx, searchSpan := tracing.StartChildSpan(ctx, "candidates")
	ranked, total, window, err := e.candidates(searchCtx, snap.Index, q, need)
	searchSpan.SetAttr("window", window)
	searchSpan.End()
	if err != nil {
		return nil, fmt.Errorf("searching generation %s: %w", snap.Generation, err)
	}
	e.metrics.ObserveCandidates(window)
	resp.TotalHits = total

	if from >= len(ranked) {
		return resp, nil
	}
	page := ranked[from:]

	snipCtx, snipSpan := tracing.StartChildSpan(ctx, "snippets")
	defer snipSpan.End()
	ids := make([]string, len(page))
	for i, d := range page {
		ids[i] = d.ID
	}
	bodies, err := snap.Index.Bodies(snipCtx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading bodies: %w", err)
	}

	terms := snippet.Terms(q)
	for _, d := range page {
		s := snippet.Extract(bodies[d.ID], terms, e.settings.Snippet)
		highlights := make([]proto.Highlight, len(s.Spans))
		for i, sp := range s.Spans {
			highlights[i] = proto.Highlight{Start: sp.Start, End: sp.End}
		}
		resp.Results = append(resp.Results, proto.SearchResult{
			URL:         d.URL,
			Domain:      d.Domain,
			Title:       d.Title,
			Score:       d.Score,
			Relevance:   d.Relevance,
			Authority:   d.Authority,
			Snippet:     s.Text,
			SnippetHTML: s.HTML(),
			Highlights:  highlights,
		})
	}
	return resp, nil
}

// candidates returns the best need documents by fused score. The index
// ranks by relevance only, so a document outside the window could still
// overtake one inside it by at most the authority factor; the window doubles
// until the n-th fused score beats anything an unseen candidate could reach.
func (e *Executor) candidates(ctx context.Context, idx index.Searcher, q *parser.Query, need int) ([]ranker.ScoredDoc, uint64, int, error) {
	k := e.settings.AuthorityWeight
	window := max(e.settings.CandidateWindow, need)
	if e.settings.MaxCandidates > 0 {
		window = min(window, max(e.settings.MaxCandidates, need))
	}
	for {
		res, err := idx.Search(ctx, q, window)
		if err != nil {
			return nil, 0, window, err
		}
		top := merger.Top(ranker.Score(res.Hits, k), need)

		exhausted := len(res.Hits) < window || uint64(len(res.Hits)) >= res.Total
		// domain listings already arrive in authority order
		if exhausted || len(q.Clauses) == 0 || window >= e.settings.MaxCandidates {
			return top, res.Total, window, nil
		}
		floor := res.Hits[len(res.Hits)-1].Relevance
		if len(top) == need && top[need-1].Score > ranker.Bound(floor, k) {
			return top, res.Total, window, nil
		}
		window = min(window*2, e.settings.MaxCandidates)
	}
}

// Stats describes the served generation.
func (e *Executor) Stats(ctx context.Context) (*proto.StatsResponse, error) {
	snap, err := e.source.Acquire()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	pages, err := snap.Index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	m := snap.Manifest
	resp := &proto.StatsResponse{
		Generation:    snap.Generation,
		TotalPages:    pages,
		SkippedPages:  m.Skipped,
		IndexSizeByte: m.SizeBytes,
		Domains:       make([]proto.DomainStat, 0, len(m.Domains)),
	}
	if !m.CreatedAt.IsZero() {
		resp.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	}
	for _, d := range m.Domains {
		resp.Domains = append(resp.Domains, proto.DomainStat{
			Domain:    d.Domain,
			Pages:     d.Pages,
			Links:     d.Links,
			Converged: d.Converged,
			MaxScore:  d.MaxAuthority,
		})
	}
	return resp, nil
}
