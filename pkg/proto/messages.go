// Package proto defines the wire types shared by the searcher's HTTP API, its
// JSON-over-TCP RPC surface (see pkg/rpc) and the operator CLI.
package proto

// ---------- Search ----------

// SearchRequest is the input to the Search RPC and the search endpoint.
type SearchRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
	Count int    `json:"count"`
}

// SearchResponse is one page of ranked results.
type SearchResponse struct {
	Query      string         `json:"query"`
	Page       int            `json:"page"`
	Count      int            `json:"count"`
	TotalHits  uint64         `json:"total_hits"`
	Results    []SearchResult `json:"results"`
	LatencyMs  float64        `json:"latency_ms"`
	CacheHit   bool           `json:"cache_hit"`
	Generation string         `json:"generation"`
}

// SearchResult is a single ranked document.
type SearchResult struct {
	URL         string      `json:"url"`
	Domain      string      `json:"domain"`
	Title       string      `json:"title"`
	Score       float64     `json:"score"`
	Relevance   float64     `json:"relevance"`
	Authority   float64     `json:"authority"`
	Snippet     string      `json:"snippet"`
	SnippetHTML string      `json:"snippet_html"`
	Highlights  []Highlight `json:"highlights,omitempty"`
}

// Highlight is a half-open byte range [Start, End) into Snippet.
type Highlight struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ---------- Index ----------

// StatsResponse describes the generation being served.
type StatsResponse struct {
	Generation    string       `json:"generation"`
	CreatedAt     string       `json:"created_at"`
	TotalPages    uint64       `json:"total_pages"`
	SkippedPages  int          `json:"skipped_pages"`
	IndexSizeByte int64        `json:"index_size_bytes"`
	Domains       []DomainStat `json:"domains"`
}

// DomainStat holds per-domain statistics.
type DomainStat struct {
	Domain    string  `json:"domain"`
	Pages     int     `json:"pages"`
	Links     int     `json:"links"`
	Converged bool    `json:"converged"`
	MaxScore  float64 `json:"max_authority"`
}

// ReloadRequest asks the searcher to re-resolve CURRENT.
type ReloadRequest struct {
	Reason string `json:"reason"`
}

// ReloadResponse reports the generation served after a reload.
type ReloadResponse struct {
	Swapped    bool   `json:"swapped"`
	Generation string `json:"generation"`
}

// ErrorResponse is the JSON body of every non-2xx HTTP answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
