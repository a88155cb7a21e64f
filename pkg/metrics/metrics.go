// Package metrics defines the Prometheus metric collectors used by the
// indexer and searcher and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so packages can be used without a registry in tests.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	SearchCandidates     prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	PagesIndexedTotal    *prometheus.CounterVec
	PagesSkippedTotal    *prometheus.CounterVec
	BuildStageDuration   *prometheus.HistogramVec
	AuthorityIterations  prometheus.Histogram
	SnapshotSwapsTotal   *prometheus.CounterVec
	SnapshotPages        prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Passing nil uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, empty_query, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50},
			},
		),
		SearchCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_candidate_window",
				Help:    "Candidate window size fetched from the index before fusion.",
				Buckets: prometheus.ExponentialBuckets(25, 2, 8),
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		PagesIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_pages_total",
				Help: "Pages written to the index by domain.",
			},
			[]string{"domain"},
		),
		PagesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_pages_skipped_total",
				Help: "Crawl records skipped during a build by reason.",
			},
			[]string{"reason"},
		),
		BuildStageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_build_stage_seconds",
				Help:    "Duration of index build stages.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		AuthorityIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "authority_iterations",
				Help:    "PageRank iterations needed per domain.",
				Buckets: []float64{1, 5, 10, 20, 40, 60, 80, 100},
			},
		),
		SnapshotSwapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_snapshot_swaps_total",
				Help: "Index generation reloads by status.",
			},
			[]string{"status"},
		),
		SnapshotPages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_snapshot_pages",
				Help: "Pages in the currently served index generation.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SearchCandidates,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.PagesIndexedTotal,
		m.PagesSkippedTotal,
		m.BuildStageDuration,
		m.AuthorityIterations,
		m.SnapshotSwapsTotal,
		m.SnapshotPages,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveSearch records one finished query.
func (m *Metrics) ObserveSearch(resultType string, cacheHit bool, results int, took time.Duration) {
	if m == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.WithLabelValues(status).Observe(took.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

func (m *Metrics) ObserveCandidates(window int) {
	if m == nil {
		return
	}
	m.SearchCandidates.Observe(float64(window))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) PagesIndexed(domain string, n int) {
	if m == nil {
		return
	}
	m.PagesIndexedTotal.WithLabelValues(domain).Add(float64(n))
}

func (m *Metrics) PageSkipped(reason string) {
	if m == nil {
		return
	}
	m.PagesSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveStage(stage string, took time.Duration) {
	if m == nil {
		return
	}
	m.BuildStageDuration.WithLabelValues(stage).Observe(took.Seconds())
}

func (m *Metrics) ObserveAuthority(iterations int) {
	if m == nil {
		return
	}
	m.AuthorityIterations.Observe(float64(iterations))
}

// SnapshotSwapped records a reload attempt and, on success, the page count
// of the generation now being served.
func (m *Metrics) SnapshotSwapped(ok bool, pages uint64) {
	if m == nil {
		return
	}
	if !ok {
		m.SnapshotSwapsTotal.WithLabelValues("error").Inc()
		return
	}
	m.SnapshotSwapsTotal.WithLabelValues("ok").Inc()
	m.SnapshotPages.Set(float64(pages))
}

func (m *Metrics) BreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
