package snippet

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
)

func highlighted(s Snippet) []string {
	out := make([]string, len(s.Spans))
	for i, sp := range s.Spans {
		out[i] = s.Text[sp.Start:sp.End]
	}
	return out
}

func TestQuickStartHighlight(t *testing.T) {
	body := "Quick Start\nInstall the package, then run the quick check."
	s := Extract(body, Terms(parser.Parse("quick")), DefaultConfig())

	assert.Equal(t, body, s.Text)
	assert.False(t, s.Leading)
	assert.False(t, s.Trailing)
	assert.Equal(t, []string{"Quick", "quick"}, highlighted(s))
	assert.Equal(t, Span{Start: 0, End: 5}, s.Spans[0])
	assert.True(t, strings.HasPrefix(s.HTML(), "<b>Quick</b> Start"))
}

func TestWindowStartsBeforeFirstMatch(t *testing.T) {
	body := strings.Repeat("padding ", 20) + "the list comprehension syntax" + strings.Repeat(" tail", 100)
	cfg := Config{MaxLength: 64, ContextBefore: 8}
	s := Extract(body, []string{"comprehension", "list"}, cfg)

	first := strings.Index(body, "list")
	assert.True(t, s.Leading)
	assert.True(t, s.Trailing)
	assert.Len(t, s.Text, 64)
	assert.Equal(t, body[first-8:first-8+64], s.Text)
	// adjacent terms separated by a space stay separate spans
	assert.Equal(t, []string{"list", "comprehension"}, highlighted(s))
}

func TestOverlappingAndTouchingSpansMerge(t *testing.T) {
	s := Extract("xx foobar yy", []string{"foo", "oba", "bar"}, DefaultConfig())
	assert.Equal(t, []string{"foobar"}, highlighted(s))

	s = Extract("abcdef", []string{"abc", "def"}, DefaultConfig())
	assert.Equal(t, []Span{{Start: 0, End: 6}}, s.Spans)
}

func TestNoMatchStartsAtBody(t *testing.T) {
	body := strings.Repeat("x", 500)
	s := Extract(body, []string{"absent"}, DefaultConfig())
	assert.Equal(t, body[:320], s.Text)
	assert.False(t, s.Leading)
	assert.True(t, s.Trailing)
	assert.Empty(t, s.Spans)
}

func TestRuneBoundaries(t *testing.T) {
	body := strings.Repeat("é", 100) + "Größe" + strings.Repeat("ü", 200)
	s := Extract(body, []string{"GRÖSSE", "größe"}, Config{MaxLength: 41, ContextBefore: 7})

	require.True(t, utf8.ValidString(s.Text))
	assert.LessOrEqual(t, len(s.Text), 41)
	assert.Equal(t, []string{"Größe"}, highlighted(s))
}

func TestHTMLEscaping(t *testing.T) {
	s := Extract(`use <T> & "vec<T>"`, []string{"vec<t>"}, DefaultConfig())
	assert.Equal(t, `use &lt;T&gt; &amp; &#34;<b>vec&lt;T&gt;</b>&#34;`, s.HTML())
}

func TestTermsSkipCode(t *testing.T) {
	q := parser.Parse("slices `append(s, x)` \"capacity grows\"")
	assert.Equal(t, []string{"slices", "capacity grows"}, Terms(q))
	assert.Nil(t, Terms(nil))
}

func TestEmptyBody(t *testing.T) {
	s := Extract("", []string{"x"}, DefaultConfig())
	assert.Empty(t, s.Text)
	assert.Empty(t, s.HTML())
}

func BenchmarkExtract(b *testing.B) {
	body := strings.Repeat("Information retrieval systems combine tokenization and stemming. ", 200) +
		"A list comprehension consists of brackets containing an expression."
	terms := Terms(parser.Parse(`"list comprehension" brackets`))
	cfg := DefaultConfig()
	b.ReportAllocs()
	b.SetBytes(int64(len(body)))
	for i := 0; i < b.N; i++ {
		_ = Extract(body, terms, cfg)
	}
}
