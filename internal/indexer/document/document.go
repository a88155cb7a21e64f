// Package document maps crawled pages to the field layout stored in the
// index. The field table below is the single source of boosts and field
// kinds for both the index mapping and query construction.
package document

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/crawl"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/authority"
)

const (
	FieldURL           = "url"
	FieldDomain        = "domain"
	FieldTitle         = "title"
	FieldHeadings      = "headings"
	FieldBody          = "body"
	FieldCode          = "code"
	FieldAuthority     = "authority"
	FieldAuthorityNorm = "authority_norm"
)

// Kind says how a field is analysed.
type Kind int

const (
	// KindText is word-tokenised, lower-cased and stemmed.
	KindText Kind = iota
	// KindCode is code-tokenised and case-sensitive.
	KindCode
	// KindKeyword is matched verbatim and never scored.
	KindKeyword
	// KindNumeric is stored only.
	KindNumeric
	// KindStored is text kept for display, not indexed.
	KindStored
)

// Field describes one index field.
type Field struct {
	Name   string
	Kind   Kind
	Boost  float64
	Stored bool
}

// Fields is the index layout. Structural matches (title and headings)
// weigh more than body matches.
var Fields = []Field{
	{Name: FieldURL, Kind: KindKeyword, Stored: true},
	{Name: FieldDomain, Kind: KindKeyword, Stored: true},
	{Name: FieldTitle, Kind: KindStored, Stored: true},
	{Name: FieldHeadings, Kind: KindText, Boost: 8},
	{Name: FieldBody, Kind: KindText, Boost: 1, Stored: true},
	{Name: FieldCode, Kind: KindCode, Boost: 1.5},
	{Name: FieldAuthority, Kind: KindNumeric, Stored: true},
	{Name: FieldAuthorityNorm, Kind: KindNumeric, Stored: true},
}

// Boost returns the declared boost of a field, or 0 for unscored fields.
func Boost(name string) float64 {
	for _, f := range Fields {
		if f.Name == name {
			return f.Boost
		}
	}
	return 0
}

// Document is a page in index form.
type Document struct {
	ID            string
	URL           string
	Domain        string
	Title         string
	Headings      string
	Body          string
	Code          string
	Authority     float64
	AuthorityNorm float64
}

// Build maps a page and its authority scores. It reads nothing but its
// arguments.
func Build(p crawl.Page, score, norm float64) Document {
	return Document{
		ID:            p.URL,
		URL:           p.URL,
		Domain:        strings.ToLower(p.Domain),
		Title:         p.Title,
		Headings:      joinHeadings(p.Title, p.Headings),
		Body:          p.Body,
		Code:          strings.Join(p.Code, "\n"),
		Authority:     score,
		AuthorityNorm: norm,
	}
}

// BuildDomain maps every page of a domain; pages[i] must correspond to node i
// of the graph that res was computed on.
func BuildDomain(pages []crawl.Page, res authority.Result) []Document {
	norm := authority.Normalize(res.Scores)
	docs := make([]Document, len(pages))
	for i, p := range pages {
		var score, n float64
		if i < len(res.Scores) {
			score, n = res.Scores[i], norm[i]
		}
		docs[i] = Build(p, score, n)
	}
	return docs
}

// Fields returns the field map handed to the index.
func (d Document) Fields() map[string]interface{} {
	return map[string]interface{}{
		FieldURL:           d.URL,
		FieldDomain:        d.Domain,
		FieldTitle:         d.Title,
		FieldHeadings:      d.Headings,
		FieldBody:          d.Body,
		FieldCode:          d.Code,
		FieldAuthority:     d.Authority,
		FieldAuthorityNorm: d.AuthorityNorm,
	}
}

func joinHeadings(title string, headings []string) string {
	parts := make([]string, 0, len(headings)+1)
	if title != "" {
		parts = append(parts, title)
	}
	for _, h := range headings {
		if h != "" && h != title {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, "\n")
}
