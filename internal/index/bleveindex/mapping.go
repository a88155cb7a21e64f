package bleveindex

import (
	"fmt"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
)

// NewMapping builds the index mapping from the document field table.
func NewMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	for name, cfg := range analyzers {
		if err := im.AddCustomAnalyzer(name, cfg); err != nil {
			return nil, fmt.Errorf("registering analyzer %s: %w", name, err)
		}
	}

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false
	for _, f := range document.Fields {
		dm.AddFieldMappingsAt(f.Name, fieldMapping(f))
	}

	im.DefaultMapping = dm
	im.DefaultAnalyzer = TextAnalyzer
	im.IndexDynamic = false
	im.StoreDynamic = false
	return im, nil
}

func fieldMapping(f document.Field) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch f.Kind {
	case document.KindText:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = TextAnalyzer
	case document.KindCode:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = CodeAnalyzer
	case document.KindKeyword:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.IncludeTermVectors = false
	case document.KindStored:
		fm = bleve.NewTextFieldMapping()
		fm.Index = false
		fm.IncludeTermVectors = false
	case document.KindNumeric:
		fm = bleve.NewNumericFieldMapping()
		// authority_norm stays indexed so domain listings can sort on it
		fm.Index = f.Name == document.FieldAuthorityNorm
	}
	fm.Store = f.Stored
	fm.IncludeInAll = false
	return fm
}
