package memindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
)

func newIndex(t *testing.T, docs ...document.Document) *Index {
	t.Helper()
	m := New()
	for _, d := range docs {
		require.NoError(t, m.Add(d))
	}
	require.NoError(t, m.Commit())
	return m
}

func doc(id, domain, headings, body, code string, norm float64) document.Document {
	return document.Document{ID: id, URL: id, Domain: domain, Headings: headings, Body: body, Code: code, AuthorityNorm: norm}
}

func ids(res *index.Result) []string {
	out := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = h.ID
	}
	return out
}

func TestSearchSemantics(t *testing.T) {
	m := newIndex(t,
		doc("py/a", "docs.python.org", "Data Structures", "A list comprehension builds lists.", "[x for x in y]", 1),
		doc("py/b", "docs.python.org", "Sorting", "Sorting a list by the comprehension of keys.", "sorted(xs, key=f)", 0.5),
		doc("js/a", "developer.mozilla.org", "Array map", "Unlike a list comprehension, map takes a callback.", "xs.map(f)", 1),
	)
	ctx := context.Background()

	tests := []struct {
		query string
		want  []string
	}{
		{`domain:docs.python.org "list comprehension"`, []string{"py/a"}},
		{`"list comprehension"`, []string{"js/a", "py/a"}},
		{"list comprehension", []string{"js/a", "py/a", "py/b"}},
		{"sorting callback", nil},
		{"`xs.map`", []string{"js/a"}},
		{"`XS.map`", nil},
		{"structures", []string{"py/a"}},
		{"domain:nowhere.org list", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := m.Search(ctx, parser.Parse(tt.query), 10)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(res))
		})
	}
}

func TestHeadingBoost(t *testing.T) {
	m := newIndex(t,
		doc("body", "d", "Other", "closures everywhere in this body text", "", 0),
		doc("head", "d", "Closures", "something unrelated in this body text", "", 0),
	)
	res, err := m.Search(context.Background(), parser.Parse("closures"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"head", "body"}, ids(res))
}

func TestTiesBreakByID(t *testing.T) {
	m := newIndex(t,
		doc("c", "d", "", "same words", "", 0),
		doc("a", "d", "", "same words", "", 0),
		doc("b", "d", "", "same words", "", 0),
	)
	res, err := m.Search(context.Background(), parser.Parse("same"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(res))
	assert.Equal(t, uint64(3), res.Total)
}

func TestDomainListing(t *testing.T) {
	m := newIndex(t,
		doc("x/low", "x", "", "a", "", 0.1),
		doc("x/high", "x", "", "b", "", 1),
		doc("y/top", "y", "", "c", "", 1),
	)
	res, err := m.Search(context.Background(), parser.Parse("domain:x"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"x/high", "x/low"}, ids(res))
	assert.Equal(t, 1.0, res.Hits[1].Relevance)
}

func TestDuplicateAddAndAbort(t *testing.T) {
	m := newIndex(t, doc("a", "d", "", "one", "", 0))
	require.NoError(t, m.Add(doc("a", "d", "", "two", "", 0)))

	bodies, err := m.Bodies(context.Background(), []string{"a", "zz"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "one"}, bodies)

	require.NoError(t, m.Abort())
	n, err := m.DocCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClosed(t *testing.T) {
	m := newIndex(t)
	require.NoError(t, m.Close())
	_, err := m.Search(context.Background(), parser.Parse("x"), 1)
	assert.ErrorIs(t, err, index.ErrClosed)
	assert.ErrorIs(t, m.Add(doc("a", "d", "", "", "", 0)), index.ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	m := newIndex(t, doc("a", "d", "", "word", "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Search(ctx, parser.Parse("word"), 1)
	assert.ErrorIs(t, err, context.Canceled)
}
