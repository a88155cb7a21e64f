package merger

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/ranker"
)

func doc(url string, score, rel float64) ranker.ScoredDoc {
	return ranker.ScoredDoc{ID: url, URL: url, Score: score, Relevance: rel}
}

func urls(docs []ranker.ScoredDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.URL
	}
	return out
}

func TestTopKeepsBestAndDropsDuplicateURLs(t *testing.T) {
	docs := []ranker.ScoredDoc{
		doc("a", 1, 1), doc("b", 5, 5), doc("c", 3, 2), doc("d", 3, 3), doc("b", 9, 9),
	}
	assert.Equal(t, []string{"b", "d", "c"}, urls(Top(docs, 3)))
}

func TestTopMatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var all []ranker.ScoredDoc
	for i := 0; i < 500; i++ {
		// coarse scores force plenty of ties
		s := float64(rng.Intn(20))
		all = append(all, doc(fmt.Sprintf("https://x/%03d", i), s, float64(rng.Intn(3))))
	}
	want := append([]ranker.ScoredDoc(nil), all...)
	sort.Slice(want, func(i, j int) bool { return ranker.Before(want[i], want[j]) })

	assert.Equal(t, want[:25], Top(all, 25))
	assert.Equal(t, want, Top(all, 1000))
}

func TestTopDefaultsAndEmpty(t *testing.T) {
	assert.Empty(t, Top(nil, 5))
	var many []ranker.ScoredDoc
	for i := 0; i < 20; i++ {
		many = append(many, doc(fmt.Sprint(i), float64(i), 0))
	}
	got := Top(many, 0)
	assert.Len(t, got, DefaultLimit)
	assert.Equal(t, "19", got[0].URL)
}
