package authority

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/crawl"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/graph"
)

func buildGraph(links map[string][]string, order ...string) *graph.SiteGraph {
	pages := make([]crawl.Page, 0, len(order))
	for _, u := range order {
		pages = append(pages, crawl.Page{URL: u, Links: links[u]})
	}
	return graph.Build("test", pages)
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

func TestTwoNodeChainFavoursTarget(t *testing.T) {
	g := buildGraph(map[string][]string{"a": {"b"}}, "a", "b")
	res := Score(g, DefaultConfig())

	require.True(t, res.Converged)
	assert.Greater(t, res.Scores[1], res.Scores[0])
	assert.InDelta(t, 1.0, sum(res.Scores), 1e-9)
}

func TestMassConservedWithDanglingNodes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		n := 2 + rng.Intn(40)
		urls := make([]string, n)
		for i := range urls {
			urls[i] = fmt.Sprintf("u%d", i)
		}
		links := map[string][]string{}
		for i := range urls {
			if rng.Float64() < 0.3 {
				continue // dangling
			}
			for k := rng.Intn(5); k > 0; k-- {
				links[urls[i]] = append(links[urls[i]], urls[rng.Intn(n)])
			}
		}
		g := buildGraph(links, urls...)

		for _, iters := range []int{1, 3, 50, 500} {
			res := Score(g, Config{Damping: 0.85, Tolerance: 1e-12, MaxIterations: iters})
			assert.InDelta(t, 1.0, sum(res.Scores), 1e-9, "trial %d iters %d", trial, iters)
			for _, s := range res.Scores {
				assert.GreaterOrEqual(t, s, 0.0)
			}
		}
	}
}

func TestTerminatesAtIterationCap(t *testing.T) {
	g := buildGraph(map[string][]string{"a": {"b"}, "b": {"a", "c"}}, "a", "b", "c")
	res := Score(g, Config{Damping: 0.85, Tolerance: 0, MaxIterations: 7})
	assert.Equal(t, 7, res.Iterations)
	assert.False(t, res.Converged)
}

func TestTrivialGraphs(t *testing.T) {
	res := Score(buildGraph(nil), DefaultConfig())
	assert.Empty(t, res.Scores)
	assert.True(t, res.Converged)

	res = Score(buildGraph(nil, "only"), DefaultConfig())
	assert.Equal(t, []float64{1}, res.Scores)

	// No edges at all: every page is dangling and scores stay uniform.
	res = Score(buildGraph(nil, "a", "b", "c", "d"), DefaultConfig())
	for _, s := range res.Scores {
		assert.InDelta(t, 0.25, s, 1e-12)
	}
}

func TestDeterministic(t *testing.T) {
	links := map[string][]string{"a": {"b", "c"}, "b": {"c"}, "c": {"a"}, "d": {"c"}}
	g := buildGraph(links, "a", "b", "c", "d")
	first := Score(g, DefaultConfig())
	second := Score(g, DefaultConfig())
	assert.Equal(t, first, second)
	assert.Equal(t, 2, argmax(first.Scores))
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0.5, 1, 0}, Normalize([]float64{0.2, 0.4, 0}))
	assert.Equal(t, []float64{0, 0}, Normalize([]float64{0, 0}))
	assert.False(t, math.IsNaN(Normalize([]float64{0})[0]))
}

func BenchmarkScore(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	n := 5000
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://docs.example.org/p/%d", i)
	}
	links := map[string][]string{}
	for i := range urls {
		for k := 0; k < 8; k++ {
			links[urls[i]] = append(links[urls[i]], urls[rng.Intn(n)])
		}
	}
	g := buildGraph(links, urls...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Score(g, DefaultConfig())
	}
}
