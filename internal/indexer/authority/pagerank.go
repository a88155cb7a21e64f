// Package authority computes per-site PageRank over a graph.SiteGraph.
//
// Score is a pure function: the same graph and Config always yield the same
// scores. Scores of one graph sum to 1 after every iteration because pages
// without outbound links spread their mass uniformly instead of leaking it.
package authority

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/graph"
)

// Config controls the iteration.
type Config struct {
	Damping       float64
	Tolerance     float64
	MaxIterations int
}

// DefaultConfig is the classic random-surfer setting.
func DefaultConfig() Config {
	return Config{Damping: 0.85, Tolerance: 1e-9, MaxIterations: 100}
}

// Result holds one score per node of the input graph.
type Result struct {
	Scores     []float64
	Iterations int
	Delta      float64
	Converged  bool
}

// Max returns the largest score, or 0 for an empty result.
func (r Result) Max() float64 {
	m := 0.0
	for _, s := range r.Scores {
		if s > m {
			m = s
		}
	}
	return m
}

// Score runs PageRank on g. An empty graph yields an empty, converged
// result; a single page gets the whole mass.
func Score(g *graph.SiteGraph, cfg Config) Result {
	n := g.Len()
	if n == 0 {
		return Result{Converged: true}
	}
	if n == 1 {
		return Result{Scores: []float64{1}, Converged: true}
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}

	inv := 1 / float64(n)
	score := make([]float64, n)
	next := make([]float64, n)
	for i := range score {
		score[i] = inv
	}
	share := make([]float64, n)

	res := Result{}
	for iter := 1; iter <= cfg.MaxIterations; iter++ {
		dangling := 0.0
		for j, out := range g.Out {
			if len(out) == 0 {
				dangling += score[j]
				share[j] = 0
				continue
			}
			share[j] = score[j] / float64(len(out))
		}

		base := (1-cfg.Damping)*inv + cfg.Damping*dangling*inv
		delta := 0.0
		for i := range next {
			sum := 0.0
			for _, j := range g.In[i] {
				sum += share[j]
			}
			next[i] = base + cfg.Damping*sum
			delta += math.Abs(next[i] - score[i])
		}
		score, next = next, score

		res.Iterations = iter
		res.Delta = delta
		if delta < cfg.Tolerance {
			res.Converged = true
			break
		}
	}
	res.Scores = score
	return res
}

// Normalize divides every score by the maximum so the best page of a domain
// maps to 1. All-zero input maps to zeros.
func Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	m := 0.0
	for _, s := range scores {
		if s > m {
			m = s
		}
	}
	if m == 0 {
		return out
	}
	for i, s := range scores {
		out[i] = s / m
	}
	return out
}
