// Package ranker fuses text relevance with per-site authority.
//
// The fused score is F = R·(1 + k·n) where R is the index relevance, n the
// page's authority normalised to [0,1] within its domain and k the
// authority weight. F is monotone in R and authority can lift a page by at
// most a factor of 1+k, so it reorders near-ties without burying better text
// matches.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
)

const DefaultAuthorityWeight = 0.5

type ScoredDoc struct {
	ID            string  `json:"id"`
	URL           string  `json:"url"`
	Domain        string  `json:"domain"`
	Title         string  `json:"title"`
	Score         float64 `json:"score"`
	Relevance     float64 `json:"relevance"`
	Authority     float64 `json:"authority"`
	AuthorityNorm float64 `json:"authority_norm"`
}

// Fuse combines relevance r and normalised authority n with weight k.
func Fuse(r, n, k float64) float64 {
	if k < 0 {
		k = 0
	}
	n = math.Max(0, math.Min(1, n))
	return r * (1 + k*n)
}

// Bound is the largest fused score any document with relevance at most r
// can reach.
func Bound(r, k float64) float64 {
	return Fuse(r, 1, k)
}

// Before reports whether a ranks ahead of b: fused score descending, then
// relevance descending, then URL ascending.
func Before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Relevance != b.Relevance {
		return a.Relevance > b.Relevance
	}
	return a.URL < b.URL
}

// Score fuses every hit without reordering.
func Score(hits []index.Hit, k float64) []ScoredDoc {
	out := make([]ScoredDoc, len(hits))
	for i, h := range hits {
		out[i] = ScoredDoc{
			ID:            h.ID,
			URL:           h.URL,
			Domain:        h.Domain,
			Title:         h.Title,
			Score:         Fuse(h.Relevance, h.AuthorityNorm, k),
			Relevance:     h.Relevance,
			Authority:     h.Authority,
			AuthorityNorm: h.AuthorityNorm,
		}
	}
	return out
}

// Rank fuses and fully sorts hits, truncating to limit when limit > 0.
func Rank(hits []index.Hit, k float64, limit int) []ScoredDoc {
	result := Score(hits, k)
	sort.Slice(result, func(i, j int) bool { return Before(result[i], result[j]) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
