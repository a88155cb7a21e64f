// Package memindex is an in-memory index with the same query semantics as
// the bleve index and a simple tf-idf score.
package memindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
)

type Index struct {
	mu     sync.RWMutex
	fields map[string]*fieldIndex
	docs   map[string]document.Document
	ids    []string
	closed bool
}

func New() *Index {
	m := &Index{
		fields: make(map[string]*fieldIndex),
		docs:   make(map[string]document.Document),
	}
	for _, f := range document.Fields {
		if f.Kind == document.KindText || f.Kind == document.KindCode {
			m.fields[f.Name] = newFieldIndex()
		}
	}
	return m
}

// Add indexes doc; adding an existing ID is an error-free no-op.
func (m *Index) Add(doc document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return index.ErrClosed
	}
	if _, exists := m.docs[doc.ID]; exists {
		return nil
	}
	values := doc.Fields()
	for _, f := range document.Fields {
		fi, ok := m.fields[f.Name]
		if !ok {
			continue
		}
		text, _ := values[f.Name].(string)
		fi.add(doc.ID, analyze(f.Kind, text))
	}
	m.docs[doc.ID] = doc
	i := sort.SearchStrings(m.ids, doc.ID)
	m.ids = append(m.ids, "")
	copy(m.ids[i+1:], m.ids[i:])
	m.ids[i] = doc.ID
	return nil
}

func (m *Index) Commit() error { return nil }

func (m *Index) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

func (m *Index) reset() {
	for name := range m.fields {
		m.fields[name] = newFieldIndex()
	}
	m.docs = make(map[string]document.Document)
	m.ids = nil
}

func analyze(kind document.Kind, text string) []string {
	if kind == document.KindCode {
		return terms(tokenizer.Code(text), false)
	}
	return terms(tokenizer.Words(text), true)
}

func terms(tokens []tokenizer.Token, normalize bool) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if normalize {
			out[i] = tokenizer.Normalize(t.Term)
		} else {
			out[i] = t.Term
		}
	}
	return out
}

func (m *Index) Search(ctx context.Context, q *parser.Query, size int) (*index.Result, error) {
	if q.Empty() || size <= 0 {
		return &index.Result{}, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, index.ErrClosed
	}

	hits := make([]index.Hit, 0)
	for _, id := range m.ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := m.docs[id]
		if q.Domain != "" && doc.Domain != q.Domain {
			continue
		}
		score, ok := 1.0, true
		if len(q.Clauses) > 0 {
			score, ok = m.score(q.Clauses, id)
		}
		if !ok {
			continue
		}
		hits = append(hits, index.Hit{
			ID:            id,
			URL:           doc.URL,
			Domain:        doc.Domain,
			Title:         doc.Title,
			Relevance:     score,
			Authority:     doc.Authority,
			AuthorityNorm: doc.AuthorityNorm,
		})
	}

	if len(q.Clauses) == 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].AuthorityNorm > hits[j].AuthorityNorm
		})
	} else {
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Relevance > hits[j].Relevance
		})
	}
	total := uint64(len(hits))
	if len(hits) > size {
		hits = hits[:size]
	}
	return &index.Result{Hits: hits, Total: total}, nil
}

// score sums clause scores; ok is false when any clause fails to match.
func (m *Index) score(clauses []parser.Clause, id string) (float64, bool) {
	total := 0.0
	for _, c := range clauses {
		var s float64
		switch c.Kind {
		case parser.ClausePhrase:
			s = m.phraseScore(document.FieldBody, terms(tokenizer.Words(c.Text), true), id)
		case parser.ClauseCode:
			s = m.phraseScore(document.FieldCode, terms(tokenizer.Code(c.Text), false), id)
		default:
			s = m.keywordScore(tokenizer.Normalize(c.Text), id)
		}
		if s == 0 {
			return 0, false
		}
		total += s
	}
	return total, true
}

func (m *Index) keywordScore(term, id string) float64 {
	s := 0.0
	for _, f := range document.Fields {
		if f.Kind != document.KindText {
			continue
		}
		fi := m.fields[f.Name]
		p := fi.posting(term, id)
		if p == nil {
			continue
		}
		s += f.Boost * tfidf(p.Frequency, fi.docFreq(term), len(m.docs), fi.lengths[id])
	}
	return s
}

func (m *Index) phraseScore(field string, phrase []string, id string) float64 {
	fi := m.fields[field]
	freq := fi.phraseFreq(phrase, id)
	if freq == 0 {
		return 0
	}
	idf := 0.0
	for _, t := range phrase {
		idf += inverseDocFreq(fi.docFreq(t), len(m.docs))
	}
	return document.Boost(field) * math.Sqrt(float64(freq)) * idf / math.Sqrt(float64(fi.lengths[id]))
}

func tfidf(tf, df, n, length int) float64 {
	return math.Sqrt(float64(tf)) * inverseDocFreq(df, n) / math.Sqrt(float64(length))
}

func inverseDocFreq(df, n int) float64 {
	return 1 + math.Log(float64(n)/float64(df+1))
}

func (m *Index) Bodies(_ context.Context, ids []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, index.ErrClosed
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if doc, ok := m.docs[id]; ok {
			out[id] = doc.Body
		}
	}
	return out, nil
}

func (m *Index) DocCount() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, index.ErrClosed
	}
	return uint64(len(m.docs)), nil
}

func (m *Index) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var (
	_ index.Writer   = (*Index)(nil)
	_ index.Searcher = (*Index)(nil)
)
