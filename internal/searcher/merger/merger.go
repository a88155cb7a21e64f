// Package merger selects the best fused-score results out of a candidate
// window without sorting the whole window.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/ranker"
)

// DefaultLimit applies when Top is asked for a non-positive limit.
const DefaultLimit = 10

// Top returns the best limit documents of docs in rank order, keeping the
// first occurrence of each URL.
func Top(docs []ranker.ScoredDoc, limit int) []ranker.ScoredDoc {
	if limit <= 0 {
		limit = DefaultLimit
	}
	h := make(worstFirst, 0, min(limit, len(docs)))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, dup := seen[d.URL]; dup {
			continue
		}
		seen[d.URL] = struct{}{}
		switch {
		case h.Len() < limit:
			heap.Push(&h, d)
		case ranker.Before(d, h[0]):
			// beats the current worst keeper
			h[0] = d
			heap.Fix(&h, 0)
		}
	}

	out := make([]ranker.ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(ranker.ScoredDoc)
	}
	return out
}

// worstFirst is a heap whose root ranks last.
type worstFirst []ranker.ScoredDoc

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return ranker.Before(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(ranker.ScoredDoc)) }

func (h *worstFirst) Pop() any {
	old := *h
	item := old[len(old)-1]
	*h = old[:len(old)-1]
	return item
}
