package bleveindex

import (
	"github.com/blevesearch/bleve/analysis"
	"github.com/blevesearch/bleve/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/analysis/token/lowercase"
	"github.com/blevesearch/bleve/analysis/token/porter"
	"github.com/blevesearch/bleve/registry"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/tokenizer"
)

const (
	wordTokenizer = "docs_word_tokenizer"
	codeTokenizer = "docs_code_tokenizer"

	// TextAnalyzer splits prose into word runs, lower-cases and stems them.
	TextAnalyzer = "docs_text"
	// CodeAnalyzer keeps identifiers and operators verbatim.
	CodeAnalyzer = "docs_code"
)

func init() {
	registry.RegisterTokenizer(wordTokenizer, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return tokenizerFunc(tokenizer.Words), nil
	})
	registry.RegisterTokenizer(codeTokenizer, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return tokenizerFunc(tokenizer.Code), nil
	})
}

var analyzers = map[string]map[string]interface{}{
	TextAnalyzer: {
		"type":          custom.Name,
		"tokenizer":     wordTokenizer,
		"token_filters": []string{lowercase.Name, porter.Name},
	},
	CodeAnalyzer: {
		"type":      custom.Name,
		"tokenizer": codeTokenizer,
	},
}

type tokenizerFunc func(string) []tokenizer.Token

func (f tokenizerFunc) Tokenize(input []byte) analysis.TokenStream {
	tokens := f(string(input))
	stream := make(analysis.TokenStream, len(tokens))
	for i, t := range tokens {
		// filters rewrite Term in place, so it must not alias input
		term := make([]byte, t.End-t.Start)
		copy(term, input[t.Start:t.End])
		stream[i] = &analysis.Token{
			Term:     term,
			Start:    t.Start,
			End:      t.End,
			Position: t.Position + 1,
			Type:     analysis.AlphaNumeric,
		}
	}
	return stream
}
