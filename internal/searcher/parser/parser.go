// Package parser turns a raw query string into a Query of tagged clauses.
// Parsing never fails: malformed input degrades to literal keywords.
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/tokenizer"
)

const (
	MaxQueryLength  = 16384
	MaxPhrases      = 16
	MaxPhraseTokens = 32
	MaxTerms        = 128
)

type ClauseKind int

const (
	ClauseKeyword ClauseKind = iota
	ClausePhrase
	ClauseCode
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseKeyword:
		return "keyword"
	case ClausePhrase:
		return "phrase"
	case ClauseCode:
		return "code"
	}
	return "unknown"
}

// Clause is one required condition. Text is what the index analyses; Terms
// are the tokens Text splits into.
type Clause struct {
	Kind  ClauseKind
	Text  string
	Terms []string
}

type Query struct {
	Raw     string
	Domain  string
	Clauses []Clause
}

// Empty reports whether the query can match nothing: no clauses and no
// domain filter.
func (q *Query) Empty() bool {
	return q == nil || (len(q.Clauses) == 0 && q.Domain == "")
}

// Keywords returns the keyword terms in query order.
func (q *Query) Keywords() []string {
	return q.texts(ClauseKeyword)
}

// Phrases returns the phrase texts in query order.
func (q *Query) Phrases() []string {
	return q.texts(ClausePhrase)
}

// Code returns the code-search texts in query order.
func (q *Query) Code() []string {
	return q.texts(ClauseCode)
}

func (q *Query) texts(kind ClauseKind) []string {
	var out []string
	for _, c := range q.Clauses {
		if c.Kind == kind {
			out = append(out, c.Text)
		}
	}
	return out
}

// Type summarises the clause mix for analytics: empty, domain, keyword,
// phrase, code or mixed.
func (q *Query) Type() string {
	if q.Empty() {
		return "empty"
	}
	if len(q.Clauses) == 0 {
		return "domain"
	}
	kind := q.Clauses[0].Kind
	for _, c := range q.Clauses[1:] {
		if c.Kind != kind {
			return "mixed"
		}
	}
	return kind.String()
}

// String renders a canonical form; equal strings mean equal searches.
func (q *Query) String() string {
	var b strings.Builder
	if q.Domain != "" {
		b.WriteString("domain:")
		b.WriteString(q.Domain)
	}
	for _, c := range q.Clauses {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		switch c.Kind {
		case ClausePhrase:
			b.WriteString(`"` + c.Text + `"`)
		case ClauseCode:
			b.WriteString("`" + c.Text + "`")
		default:
			b.WriteString(strings.ToLower(c.Text))
		}
	}
	return b.String()
}

type parser struct {
	q        *Query
	keywords int
	phrases  int
	seen     map[string]bool
}

// Parse splits raw into keyword, phrase and code clauses plus an optional
// domain: (or site:) filter. Parse never fails; malformed input degrades to
// keywords. The domain value is lower-cased to match how pages store their
// host, so Domain may differ from the spelling in raw.
func Parse(raw string) *Query {
	p := &parser{
		q:    &Query{Raw: raw},
		seen: make(map[string]bool),
	}
	p.scan(raw)
	return p.q
}

func (p *parser) scan(s string) {
	var text strings.Builder
	flush := func() {
		p.addKeywords(text.String())
		text.Reset()
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' || c == '`':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				text.WriteString(s[i+1:])
				i = len(s)
				continue
			}
			flush()
			inner := s[i+1 : i+1+end]
			if c == '"' {
				p.addPhrase(inner)
			} else {
				p.addCode(inner)
			}
			i += end + 2
			continue
		case atTokenStart(s, i):
			if n, ok := p.operator(s[i:]); ok {
				flush()
				i += n
				continue
			}
		}
		text.WriteByte(c)
		i++
	}
	flush()
}

func atTokenStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsSpace(r)
}

// operator consumes a domain:, site: or code: token at the start of s and
// reports how many bytes it used.
func (p *parser) operator(s string) (int, bool) {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		end = len(s)
	}
	word := s[:end]
	colon := strings.IndexByte(word, ':')
	if colon <= 0 || colon == len(word)-1 {
		return 0, false
	}
	value := word[colon+1:]
	switch strings.ToLower(word[:colon]) {
	case "domain", "site":
		if p.q.Domain != "" {
			return 0, false
		}
		p.q.Domain = strings.ToLower(value)
		return end, true
	case "code":
		p.addCode(value)
		return end, true
	}
	return 0, false
}

func (p *parser) addKeywords(text string) {
	for _, tok := range tokenizer.Words(text) {
		if p.keywords >= MaxTerms {
			return
		}
		key := strings.ToLower(tok.Term)
		if p.seen[key] {
			continue
		}
		p.seen[key] = true
		p.keywords++
		p.q.Clauses = append(p.q.Clauses, Clause{Kind: ClauseKeyword, Text: tok.Term, Terms: []string{tok.Term}})
	}
}

func (p *parser) addPhrase(text string) {
	tokens := tokenizer.Words(text)
	if len(tokens) == 0 || p.phrases >= MaxPhrases {
		return
	}
	if len(tokens) > MaxPhraseTokens {
		tokens = tokens[:MaxPhraseTokens]
	}
	p.phrases++
	p.q.Clauses = append(p.q.Clauses, Clause{
		Kind:  ClausePhrase,
		Text:  text[tokens[0].Start:tokens[len(tokens)-1].End],
		Terms: termsOf(tokens),
	})
}

func (p *parser) addCode(text string) {
	text = strings.TrimSpace(text)
	tokens := tokenizer.Code(text)
	if len(tokens) == 0 {
		return
	}
	p.q.Clauses = append(p.q.Clauses, Clause{Kind: ClauseCode, Text: text, Terms: termsOf(tokens)})
}

func termsOf(tokens []tokenizer.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Term
	}
	return out
}
