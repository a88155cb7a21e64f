// Package index declares the narrow capabilities the rest of the engine
// needs from a full-text index. bleveindex is the on-disk implementation;
// memindex backs tests and small tools.
package index

import (
	"context"
	"errors"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/searcher/parser"
)

var ErrClosed = errors.New("index closed")

// Writer accepts documents and makes them durable on Commit. A Writer is
// single-use: Commit or Abort ends it.
type Writer interface {
	Add(doc document.Document) error
	Commit() error
	Abort() error
}

// Hit is one candidate with its pure relevance score and stored fields.
type Hit struct {
	ID            string
	URL           string
	Domain        string
	Title         string
	Relevance     float64
	Authority     float64
	AuthorityNorm float64
}

type Result struct {
	Hits  []Hit
	Total uint64
}

// Searcher answers structured queries. Every clause is required and the
// domain filter restricts without scoring differences. Hits come back
// ordered by relevance descending then ID ascending. A query holding only a
// domain filter lists that domain in authority order with relevance 1.
type Searcher interface {
	Search(ctx context.Context, q *parser.Query, size int) (*Result, error)
	// Bodies returns the stored body of each requested document.
	Bodies(ctx context.Context, ids []string) (map[string]string, error)
	DocCount() (uint64, error)
	Close() error
}
