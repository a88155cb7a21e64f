package memindex

type Posting struct {
	DocID     string
	Frequency int
	Positions []int
}

// fieldIndex is the inverted index of one field.
type fieldIndex struct {
	postings map[string]map[string]*Posting
	lengths  map[string]int
}

func newFieldIndex() *fieldIndex {
	return &fieldIndex{
		postings: make(map[string]map[string]*Posting),
		lengths:  make(map[string]int),
	}
}

func (f *fieldIndex) add(docID string, terms []string) {
	termData := make(map[string]*Posting)
	for pos, term := range terms {
		p, exists := termData[term]
		if !exists {
			p = &Posting{DocID: docID, Positions: make([]int, 0, 4)}
			termData[term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, pos)
	}
	for term, posting := range termData {
		if _, exists := f.postings[term]; !exists {
			f.postings[term] = make(map[string]*Posting)
		}
		f.postings[term][docID] = posting
	}
	f.lengths[docID] = len(terms)
}

func (f *fieldIndex) posting(term, docID string) *Posting {
	return f.postings[term][docID]
}

func (f *fieldIndex) docFreq(term string) int {
	return len(f.postings[term])
}

// phraseFreq counts the places where terms occur consecutively in docID.
func (f *fieldIndex) phraseFreq(terms []string, docID string) int {
	if len(terms) == 0 {
		return 0
	}
	first := f.posting(terms[0], docID)
	if first == nil {
		return 0
	}
	rest := make([]map[int]bool, len(terms)-1)
	for i, term := range terms[1:] {
		p := f.posting(term, docID)
		if p == nil {
			return 0
		}
		rest[i] = make(map[int]bool, len(p.Positions))
		for _, pos := range p.Positions {
			rest[i][pos] = true
		}
	}
	n := 0
next:
	for _, start := range first.Positions {
		for i, set := range rest {
			if !set[start+i+1] {
				continue next
			}
		}
		n++
	}
	return n
}
