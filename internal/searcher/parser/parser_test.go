package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomainAndPhrase(t *testing.T) {
	q := Parse(`domain:python.org "list comprehension"`)

	assert.Equal(t, "python.org", q.Domain)
	require.Len(t, q.Clauses, 1)
	assert.Equal(t, ClausePhrase, q.Clauses[0].Kind)
	assert.Equal(t, "list comprehension", q.Clauses[0].Text)
	assert.Equal(t, []string{"list", "comprehension"}, q.Clauses[0].Terms)
	assert.Empty(t, q.Keywords())
}

func TestParseUnterminatedPhrase(t *testing.T) {
	q := Parse(`"unterminated phrase`)

	assert.Empty(t, q.Domain)
	assert.Equal(t, []string{"unterminated", "phrase"}, q.Keywords())
	assert.Empty(t, q.Phrases())
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		domain   string
		keywords []string
		phrases  []string
		code     []string
	}{
		{name: "keywords", in: "async iterator", keywords: []string{"async", "iterator"}},
		{name: "symbols kept", in: "c++ templates vs c#", keywords: []string{"c++", "templates", "vs", "c#"}},
		{name: "site alias", in: "site:go.dev context", domain: "go.dev", keywords: []string{"context"}},
		{name: "domain case folded", in: "Domain:Go.Dev", domain: "go.dev"},
		{name: "site value case folded", in: "site:Docs.Python.ORG list", domain: "docs.python.org", keywords: []string{"list"}},
		{name: "first domain wins", in: "domain:a.org domain:b.org x", domain: "a.org", keywords: []string{"domain", "b", "org", "x"}},
		{name: "empty domain value", in: "domain: foo", keywords: []string{"domain", "foo"}},
		{name: "backtick code", in: "sort `sort.Slice(xs, less)`", keywords: []string{"sort"}, code: []string{"sort.Slice(xs, less)"}},
		{name: "code operator", in: "code:Vec::new rust", keywords: []string{"rust"}, code: []string{"Vec::new"}},
		{name: "unterminated backtick", in: "`fmt.Println hello", keywords: []string{"fmt", "Println", "hello"}},
		{name: "mid-word colon is text", in: "std::vector", keywords: []string{"std", "vector"}},
		{name: "phrase inside text", in: `how "type assertion" works`, keywords: []string{"how", "works"}, phrases: []string{"type assertion"}},
		{name: "punctuation only phrase", in: `"!!!" go`, keywords: []string{"go"}},
		{name: "duplicate keywords", in: "Go go GO", keywords: []string{"Go"}},
		{name: "empty", in: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.in)
			assert.Equal(t, tt.domain, q.Domain)
			assert.Equal(t, tt.keywords, q.Keywords())
			assert.Equal(t, tt.phrases, q.Phrases())
			assert.Equal(t, tt.code, q.Code())
		})
	}
}

func TestParseClauseOrder(t *testing.T) {
	q := Parse("alpha `beta` \"gamma delta\" epsilon")
	kinds := make([]ClauseKind, len(q.Clauses))
	for i, c := range q.Clauses {
		kinds[i] = c.Kind
	}
	assert.Equal(t, []ClauseKind{ClauseKeyword, ClauseCode, ClausePhrase, ClauseKeyword}, kinds)
}

func TestParseLimits(t *testing.T) {
	var words []string
	for i := 0; i < MaxTerms+20; i++ {
		words = append(words, "w"+strings.Repeat("x", i%7)+string(rune('a'+i%26))+strings.Repeat("y", i/26))
	}
	q := Parse(strings.Join(words, " "))
	assert.Len(t, q.Keywords(), MaxTerms)

	var phrases []string
	for i := 0; i < MaxPhrases+3; i++ {
		phrases = append(phrases, `"p`+string(rune('a'+i))+` q"`)
	}
	q = Parse(strings.Join(phrases, " "))
	assert.Len(t, q.Phrases(), MaxPhrases)

	long := strings.Repeat("tok ", MaxPhraseTokens+10)
	q = Parse(`"` + long + `"`)
	require.Len(t, q.Clauses, 1)
	assert.Len(t, q.Clauses[0].Terms, MaxPhraseTokens)
	assert.Equal(t, strings.TrimSpace(strings.Repeat("tok ", MaxPhraseTokens)), q.Clauses[0].Text)
}

func TestQueryType(t *testing.T) {
	assert.Equal(t, "empty", Parse("").Type())
	assert.Equal(t, "domain", Parse("domain:go.dev").Type())
	assert.Equal(t, "keyword", Parse("a b").Type())
	assert.Equal(t, "phrase", Parse(`"a b"`).Type())
	assert.Equal(t, "code", Parse("`x`").Type())
	assert.Equal(t, "mixed", Parse("a `x`").Type())
}

func TestQueryEmpty(t *testing.T) {
	assert.True(t, Parse("").Empty())
	assert.True(t, Parse(`"" `+"``").Empty())
	assert.False(t, Parse("domain:go.dev").Empty())
	var q *Query
	assert.True(t, q.Empty())
}

func TestQueryStringCanonical(t *testing.T) {
	a := Parse(`  Site:Go.dev   Context  "cancel func" `)
	b := Parse(`domain:go.dev context "cancel func"`)
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, `domain:go.dev context "cancel func"`, b.String())
}

func BenchmarkParse(b *testing.B) {
	raw := "domain:docs.python.org \"list comprehension\" generator `yield from` async await"
	for i := 0; i < b.N; i++ {
		Parse(raw)
	}
}
