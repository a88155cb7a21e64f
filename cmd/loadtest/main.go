// Command loadtest drives the search endpoint with a mix of documentation
// queries and reports client and server latency against a budget.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 30s [-queries queries.txt]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/proto"
)

var defaultQueries = []string{
	"list comprehension",
	`domain:docs.python.org "list comprehension"`,
	"async await",
	"site:developer.mozilla.org fetch",
	"`Array.prototype.map`",
	"quick start",
	"closures",
	`"error handling"`,
	"code:useEffect",
	"generics type parameters",
	"domain:go.dev goroutines",
	"iterator protocol",
	"regular expressions",
	"unterminated \"phrase",
	"zzzz-no-such-term",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Count       int
	Budget      time.Duration
	Queries     []string
}

type Stats struct {
	total       atomic.Int64
	success     atomic.Int64
	errors      atomic.Int64
	cacheHits   atomic.Int64
	zeroResults atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	serverMs    []float64
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		serverMs:    make([]float64, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) Record(took time.Duration, status int, resp *proto.SearchResponse, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.errors.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, took)
	s.statusCodes[status]++
	if resp != nil {
		s.serverMs = append(s.serverMs, resp.LatencyMs)
		if resp.CacheHit {
			s.cacheHits.Add(1)
		}
		if resp.TotalHits == 0 {
			s.zeroResults.Add(1)
		}
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	count := flag.Int("count", 10, "results per page")
	budget := flag.Duration("budget", 100*time.Millisecond, "latency budget to report against")
	queriesFile := flag.String("queries", "", "file with one query per line (default: built-in set)")
	flag.Parse()

	queries := defaultQueries
	if *queriesFile != "" {
		loaded, err := loadQueries(*queriesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Count:       *count,
		Budget:      *budget,
		Queries:     queries,
	}

	fmt.Println("=== Doc Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Budget:      %s\n", cfg.Budget)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := run(cfg)
	if !report(stats, cfg) {
		os.Exit(1)
	}
}

func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" && !strings.HasPrefix(q, "#") {
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return out, nil
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; ctx.Err() == nil; i++ {
				q := cfg.Queries[i%len(cfg.Queries)]
				// every third request asks for the second page
				page := 0
				if i%3 == 2 {
					page = 1
				}
				took, status, resp, err := search(ctx, client, cfg, q, page)
				if ctx.Err() != nil {
					return
				}
				stats.Record(took, status, resp, err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("  %d requests\n", stats.total.Load())
			}
		}
	}()

	wg.Wait()
	fmt.Println()
	return stats
}

func search(ctx context.Context, client *http.Client, cfg Config, q string, page int) (time.Duration, int, *proto.SearchResponse, error) {
	v := url.Values{}
	v.Set("q", q)
	v.Set("page", fmt.Sprint(page))
	v.Set("count", fmt.Sprint(cfg.Count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/api/v1/search?"+v.Encode(), nil)
	if err != nil {
		return 0, 0, nil, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Since(start), resp.StatusCode, nil, nil
	}
	var body proto.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Since(start), resp.StatusCode, nil, fmt.Errorf("decoding response: %w", err)
	}
	return time.Since(start), resp.StatusCode, &body, nil
}

// report prints the summary and returns false when nothing succeeded.
func report(stats *Stats, cfg Config) bool {
	total := stats.total.Load()
	success := stats.success.Load()
	errs := stats.errors.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errs)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/cfg.Duration.Seconds())
	}
	if success > 0 {
		fmt.Printf("Cache Hits:      %.1f%%\n", float64(stats.cacheHits.Load())/float64(success)*100)
		fmt.Printf("Zero Results:    %d\n", stats.zeroResults.Load())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	if lat := stats.latencies; len(lat) > 0 {
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		var sum time.Duration
		over := 0
		for _, l := range lat {
			sum += l
			if l > cfg.Budget {
				over++
			}
		}
		fmt.Println()
		fmt.Println("=== Client Latency ===")
		fmt.Printf("Min:    %s\n", lat[0])
		fmt.Printf("Avg:    %s\n", sum/time.Duration(len(lat)))
		fmt.Printf("P50:    %s\n", percentile(lat, 50))
		fmt.Printf("P95:    %s\n", percentile(lat, 95))
		fmt.Printf("P99:    %s\n", percentile(lat, 99))
		fmt.Printf("Max:    %s\n", lat[len(lat)-1])
		fmt.Printf("Over %s: %.2f%%\n", cfg.Budget, float64(over)/float64(len(lat))*100)
	}

	if srv := stats.serverMs; len(srv) > 0 {
		sort.Float64s(srv)
		fmt.Println()
		fmt.Println("=== Server Latency (latency_ms) ===")
		fmt.Printf("P50:    %.2fms\n", srv[percentileIndex(len(srv), 50)])
		fmt.Printf("P99:    %.2fms\n", srv[percentileIndex(len(srv), 99)])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}

	if success == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests succeeded. Is the service running?")
		return false
	}
	return true
}

func percentileIndex(n int, p float64) int {
	idx := int(math.Ceil(p/100*float64(n))) - 1
	return max(0, min(idx, n-1))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[percentileIndex(len(sorted), p)]
}
