// Package bleveindex stores documents in an on-disk bleve index and
// translates parsed queries into bleve queries.
package bleveindex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/search/query"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
)

const DefaultBatchSize = 500

var hitFields = []string{
	document.FieldURL,
	document.FieldDomain,
	document.FieldTitle,
	document.FieldAuthority,
	document.FieldAuthorityNorm,
}

// Writer fills a new index in batches.
type Writer struct {
	idx       bleve.Index
	batch     *bleve.Batch
	batchSize int
	count     int
	logger    *slog.Logger
}

// Create makes a new index at path, which must not exist yet.
func Create(path string, batchSize int) (*Writer, error) {
	m, err := NewMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.New(path, m)
	if err != nil {
		return nil, fmt.Errorf("creating index at %s: %w", path, err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Writer{
		idx:       idx,
		batch:     idx.NewBatch(),
		batchSize: batchSize,
		logger:    slog.Default().With("component", "bleve-writer"),
	}, nil
}

func (w *Writer) Add(doc document.Document) error {
	if err := w.batch.Index(doc.ID, doc.Fields()); err != nil {
		return fmt.Errorf("batching %s: %w", doc.ID, err)
	}
	w.count++
	if w.batch.Size() >= w.batchSize {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if w.batch.Size() == 0 {
		return nil
	}
	if err := w.idx.Batch(w.batch); err != nil {
		return fmt.Errorf("writing batch: %w", err)
	}
	w.batch.Reset()
	return nil
}

// Count is the number of documents added so far.
func (w *Writer) Count() int {
	return w.count
}

func (w *Writer) Commit() error {
	if err := w.flush(); err != nil {
		w.idx.Close()
		return err
	}
	if err := w.idx.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	w.logger.Debug("index committed", "documents", w.count)
	return nil
}

func (w *Writer) Abort() error {
	w.batch.Reset()
	return w.idx.Close()
}

// Index is a read-only handle on a committed index.
type Index struct {
	mu     sync.RWMutex
	idx    bleve.Index
	closed bool
}

// Open opens a committed index read-only.
func Open(path string) (*Index, error) {
	idx, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", path, err)
	}
	return &Index{idx: idx}, nil
}

func (x *Index) Search(ctx context.Context, q *parser.Query, size int) (*index.Result, error) {
	if q.Empty() || size <= 0 {
		return &index.Result{}, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, index.ErrClosed
	}

	listing := len(q.Clauses) == 0
	req := bleve.NewSearchRequestOptions(Translate(q), size, 0, false)
	req.Fields = hitFields
	if listing {
		req.SortBy([]string{"-" + document.FieldAuthorityNorm, "_id"})
	} else {
		req.SortBy([]string{"-_score", "_id"})
	}

	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := &index.Result{Total: res.Total, Hits: make([]index.Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		hit := index.Hit{
			ID:            h.ID,
			URL:           stringField(h.Fields, document.FieldURL),
			Domain:        stringField(h.Fields, document.FieldDomain),
			Title:         stringField(h.Fields, document.FieldTitle),
			Relevance:     h.Score,
			Authority:     numberField(h.Fields, document.FieldAuthority),
			AuthorityNorm: numberField(h.Fields, document.FieldAuthorityNorm),
		}
		if listing {
			hit.Relevance = 1
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

func (x *Index) Bodies(ctx context.Context, ids []string) (map[string]string, error) {
	bodies := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return bodies, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, index.ErrClosed
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery(ids), len(ids), 0, false)
	req.Fields = []string{document.FieldBody}
	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("loading bodies: %w", err)
	}
	for _, h := range res.Hits {
		bodies[h.ID] = stringField(h.Fields, document.FieldBody)
	}
	return bodies, nil
}

func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return 0, index.ErrClosed
	}
	return x.idx.DocCount()
}

// Close waits for running searches and releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	return x.idx.Close()
}

// Translate maps a parsed query to a bleve query. Every clause and the
// domain filter are required. Keywords may match any text field with that
// field's boost; phrases must appear in the body; code text must appear as
// a token sequence in the code field.
func Translate(q *parser.Query) query.Query {
	var must []query.Query
	if q.Domain != "" {
		tq := bleve.NewTermQuery(q.Domain)
		tq.SetField(document.FieldDomain)
		// filter only: a zero boost keeps R identical with and without it
		tq.SetBoost(0)
		must = append(must, tq)
	}
	for _, c := range q.Clauses {
		must = append(must, clauseQuery(c))
	}
	switch len(must) {
	case 0:
		return bleve.NewMatchNoneQuery()
	case 1:
		return must[0]
	}
	return bleve.NewConjunctionQuery(must...)
}

func clauseQuery(c parser.Clause) query.Query {
	switch c.Kind {
	case parser.ClausePhrase:
		pq := bleve.NewMatchPhraseQuery(c.Text)
		pq.SetField(document.FieldBody)
		pq.SetBoost(document.Boost(document.FieldBody))
		return pq
	case parser.ClauseCode:
		pq := bleve.NewMatchPhraseQuery(c.Text)
		pq.SetField(document.FieldCode)
		pq.SetBoost(document.Boost(document.FieldCode))
		return pq
	}

	var anyField []query.Query
	for _, f := range document.Fields {
		if f.Kind != document.KindText {
			continue
		}
		mq := bleve.NewMatchQuery(c.Text)
		mq.SetField(f.Name)
		mq.SetBoost(f.Boost)
		mq.Operator = query.MatchQueryOperatorAnd
		anyField = append(anyField, mq)
	}
	return bleve.NewDisjunctionQuery(anyField...)
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

func numberField(fields map[string]interface{}, name string) float64 {
	n, _ := fields[name].(float64)
	return n
}
