package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventIndexBuild EventType = "index_build"
)

// SearchEvent is emitted once per answered search request.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	QueryType  string    `json:"query_type"`
	Domain     string    `json:"domain,omitempty"`
	Page       int       `json:"page"`
	TotalHits  uint64    `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  float64   `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Generation string    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// IndexEvent mirrors the indexer's index.complete message.
type IndexEvent struct {
	Generation string    `json:"generation"`
	Pages      int       `json:"pages"`
	Domains    int       `json:"domains"`
	CreatedAt  time.Time `json:"created_at"`
}
