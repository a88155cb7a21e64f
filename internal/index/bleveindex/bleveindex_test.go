package bleveindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
)

var corpus = []document.Document{
	{
		ID: "https://docs.python.org/3/tutorial/datastructures.html", URL: "https://docs.python.org/3/tutorial/datastructures.html",
		Domain: "docs.python.org", Title: "Data Structures", Headings: "Data Structures\nList Comprehensions",
		Body:      "List comprehension provides a concise way to create lists from iterables.",
		Code:      "squares = [x**2 for x in range(10)]",
		Authority: 0.4, AuthorityNorm: 1,
	},
	{
		ID: "https://docs.python.org/3/howto/functional.html", URL: "https://docs.python.org/3/howto/functional.html",
		Domain: "docs.python.org", Title: "Functional Programming HOWTO", Headings: "Functional Programming HOWTO\nGenerators",
		Body:      "Generator expressions resemble a list but compute lazily; the list comprehension is eager.",
		Code:      "gen = (x for x in items)",
		Authority: 0.2, AuthorityNorm: 0.5,
	},
	{
		ID: "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Global_Objects/Array/map", URL: "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Global_Objects/Array/map",
		Domain: "developer.mozilla.org", Title: "Array.prototype.map()", Headings: "Array.prototype.map()",
		Body:      "The map method creates a new array; unlike a list comprehension it takes a callback.",
		Code:      "const doubled = numbers.map((x) => x * 2);",
		Authority: 0.3, AuthorityNorm: 1,
	},
	{
		ID: "https://doc.rust-lang.org/std/iter/trait.Iterator.html", URL: "https://doc.rust-lang.org/std/iter/trait.Iterator.html",
		Domain: "doc.rust-lang.org", Title: "Iterator in std::iter", Headings: "Iterator in std::iter\nRequired Methods",
		Body:      "An interface for dealing with iterators. Most of the time you will call next.",
		Code:      "fn next(&mut self) -> Option<Self::Item>;",
		Authority: 0.5, AuthorityNorm: 1,
	},
	{
		ID: "https://doc.rust-lang.org/book/ch13-02-iterators.html", URL: "https://doc.rust-lang.org/book/ch13-02-iterators.html",
		Domain: "doc.rust-lang.org", Title: "Processing a Series of Items", Headings: "Processing a Series of Items",
		Body:      "Closures and an iterator adaptor let you process items lazily in a chain of calls.",
		Code:      "let v1_iter = v1.iter();",
		Authority: 0.1, AuthorityNorm: 0.2,
	},
}

func openCorpus(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bleve")
	w, err := Create(path, 2)
	require.NoError(t, err)
	for _, d := range corpus {
		require.NoError(t, w.Add(d))
	}
	assert.Equal(t, len(corpus), w.Count())
	require.NoError(t, w.Commit())

	idx, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func urls(res *index.Result) []string {
	out := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = h.URL
	}
	return out
}

func TestDomainAndPhraseFilter(t *testing.T) {
	idx := openCorpus(t)

	res, err := idx.Search(context.Background(), parser.Parse(`domain:docs.python.org "list comprehension"`), 10)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"https://docs.python.org/3/tutorial/datastructures.html",
		"https://docs.python.org/3/howto/functional.html",
	}, urls(res))
	for _, h := range res.Hits {
		assert.Equal(t, "docs.python.org", h.Domain)
		assert.Greater(t, h.Relevance, 0.0)
	}
}

func TestDomainFilterDoesNotScore(t *testing.T) {
	idx := openCorpus(t)
	ctx := context.Background()

	all, err := idx.Search(ctx, parser.Parse("list"), 10)
	require.NoError(t, err)
	unfiltered := make(map[string]float64)
	for _, h := range all.Hits {
		unfiltered[h.URL] = h.Relevance
	}

	filtered, err := idx.Search(ctx, parser.Parse("domain:docs.python.org list"), 10)
	require.NoError(t, err)
	require.Len(t, filtered.Hits, 2)
	for _, h := range filtered.Hits {
		want, ok := unfiltered[h.URL]
		require.True(t, ok, h.URL)
		assert.InDelta(t, want, h.Relevance, 1e-9, h.URL)
	}
}

func TestPhraseRequiresOrder(t *testing.T) {
	idx := openCorpus(t)

	res, err := idx.Search(context.Background(), parser.Parse(`"comprehension list"`), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Zero(t, res.Total)
}

func TestKeywordsAreAllRequired(t *testing.T) {
	idx := openCorpus(t)

	res, err := idx.Search(context.Background(), parser.Parse("iterator lazily"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://doc.rust-lang.org/book/ch13-02-iterators.html"}, urls(res))
}

func TestHeadingMatchOutranksBodyMatch(t *testing.T) {
	idx := openCorpus(t)

	res, err := idx.Search(context.Background(), parser.Parse("domain:doc.rust-lang.org iterator"), 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "https://doc.rust-lang.org/std/iter/trait.Iterator.html", res.Hits[0].URL)
	assert.Greater(t, res.Hits[0].Relevance, res.Hits[1].Relevance)
}

func TestStemming(t *testing.T) {
	idx := openCorpus(t)

	res, err := idx.Search(context.Background(), parser.Parse("generators"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://docs.python.org/3/howto/functional.html"}, urls(res))
}

func TestCodeIsCaseSensitive(t *testing.T) {
	idx := openCorpus(t)
	ctx := context.Background()

	res, err := idx.Search(ctx, parser.Parse("`Option<Self::Item>`"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://doc.rust-lang.org/std/iter/trait.Iterator.html"}, urls(res))

	res, err = idx.Search(ctx, parser.Parse("`option<self::item>`"), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = idx.Search(ctx, parser.Parse("code:numbers.map"), 10)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)
}

func TestDomainListingByAuthority(t *testing.T) {
	idx := openCorpus(t)

	res, err := idx.Search(context.Background(), parser.Parse("site:docs.python.org"), 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "https://docs.python.org/3/tutorial/datastructures.html", res.Hits[0].URL)
	assert.Equal(t, 1.0, res.Hits[0].Relevance)
	assert.Equal(t, 1.0, res.Hits[0].AuthorityNorm)
	assert.Equal(t, 0.4, res.Hits[0].Authority)
	assert.Equal(t, "Data Structures", res.Hits[0].Title)
}

func TestEmptyQueryAndNoMatches(t *testing.T) {
	idx := openCorpus(t)
	ctx := context.Background()

	res, err := idx.Search(ctx, parser.Parse("   "), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = idx.Search(ctx, parser.Parse("zzyzx"), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSizeLimitsHitsNotTotal(t *testing.T) {
	idx := openCorpus(t)

	res, err := idx.Search(context.Background(), parser.Parse("list"), 1)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)
	assert.Equal(t, uint64(3), res.Total)
}

func TestBodies(t *testing.T) {
	idx := openCorpus(t)

	bodies, err := idx.Bodies(context.Background(), []string{corpus[0].ID, corpus[3].ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, bodies, 2)
	assert.Equal(t, corpus[3].Body, bodies[corpus[3].ID])
}

func TestClosedIndex(t *testing.T) {
	idx := openCorpus(t)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), parser.Parse("list"), 10)
	assert.ErrorIs(t, err, index.ErrClosed)
	_, err = idx.DocCount()
	assert.ErrorIs(t, err, index.ErrClosed)
}

func TestDocCountAfterReopen(t *testing.T) {
	idx := openCorpus(t)
	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(corpus)), n)
}
