// Package snippet cuts a short excerpt around the first query match in a
// page body and marks every query term inside it.
//
// Matching is a case-insensitive literal search over the raw body, which is
// much cheaper than re-tokenising the page for every result.
package snippet

import (
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
)

type Config struct {
	// MaxLength caps the excerpt in bytes.
	MaxLength int
	// ContextBefore is how many bytes precede the first match.
	ContextBefore int
}

func DefaultConfig() Config {
	return Config{MaxLength: 320, ContextBefore: 32}
}

// Span is a half-open byte range into Snippet.Text.
type Span struct {
	Start int
	End   int
}

type Snippet struct {
	Text     string
	Spans    []Span
	Leading  bool
	Trailing bool
}

// Terms returns the texts a query highlights: keywords and phrases. Code
// clauses are not highlighted since they are matched against the code
// field, not the body.
func Terms(q *parser.Query) []string {
	if q == nil {
		return nil
	}
	var out []string
	for _, c := range q.Clauses {
		if c.Kind != parser.ClauseCode && c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Extract builds the snippet of body for terms.
func Extract(body string, terms []string, cfg Config) Snippet {
	if cfg.MaxLength <= 0 {
		cfg = DefaultConfig()
	}

	first := -1
	for _, t := range terms {
		if i, _ := indexFold(body, t, 0); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}

	start := 0
	if first > cfg.ContextBefore {
		start = alignForward(body, first-cfg.ContextBefore)
	}
	end := len(body)
	if end-start > cfg.MaxLength {
		end = alignBackward(body, start+cfg.MaxLength)
	}

	text := body[start:end]
	return Snippet{
		Text:     text,
		Spans:    spans(text, terms),
		Leading:  start > 0,
		Trailing: end < len(body),
	}
}

// HTML renders the snippet escaped, with spans wrapped in <b>.
func (s Snippet) HTML() string {
	var b strings.Builder
	prev := 0
	for _, sp := range s.Spans {
		b.WriteString(html.EscapeString(s.Text[prev:sp.Start]))
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(s.Text[sp.Start:sp.End]))
		b.WriteString("</b>")
		prev = sp.End
	}
	b.WriteString(html.EscapeString(s.Text[prev:]))
	return b.String()
}

// spans finds every occurrence of every term in text and merges spans that
// overlap or touch.
func spans(text string, terms []string) []Span {
	var found []Span
	for _, t := range terms {
		for from := 0; from < len(text); {
			i, n := indexFold(text, t, from)
			if i < 0 {
				break
			}
			found = append(found, Span{Start: i, End: i + n})
			_, size := utf8.DecodeRuneInString(text[i:])
			from = i + size
		}
	}
	if len(found) == 0 {
		return nil
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return found[i].End > found[j].End
	})

	merged := []Span{found[0]}
	for _, s := range found[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// indexFold returns the byte offset of the first case-insensitive match of
// sub in s at or after from, and the byte length of the match in s.
func indexFold(s, sub string, from int) (int, int) {
	if sub == "" {
		return -1, 0
	}
	first, _ := utf8.DecodeRuneInString(sub)
	for i := from; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if equalFoldRune(r, first) {
			if n := prefixFold(s[i:], sub); n > 0 {
				return i, n
			}
		}
		i += size
	}
	return -1, 0
}

// prefixFold reports how many bytes of s match sub case-insensitively, or 0
// when s does not start with sub.
func prefixFold(s, sub string) int {
	i := 0
	for _, want := range sub {
		if i >= len(s) {
			return 0
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if !equalFoldRune(r, want) {
			return 0
		}
		i += size
	}
	return i
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	return strings.EqualFold(string(a), string(b))
}

func alignForward(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

func alignBackward(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
