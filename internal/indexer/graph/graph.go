// Package graph builds the per-site link graph used for authority scoring.
// Nodes are dense indices into URLs; edges only connect pages of the same
// crawl set.
package graph

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/crawl"
)

// SiteGraph is the internal link graph of one domain.
//
// Out[i] lists the targets of node i in ascending order without duplicates
// or self-loops; In[i] is the transpose.
type SiteGraph struct {
	Domain string
	URLs   []string
	Out    [][]int
	In     [][]int
	// Dropped counts links that did not resolve to a page of this domain.
	Dropped int
}

// Len returns the number of nodes.
func (g *SiteGraph) Len() int { return len(g.URLs) }

// Edges returns the number of distinct edges.
func (g *SiteGraph) Edges() int {
	n := 0
	for _, out := range g.Out {
		n += len(out)
	}
	return n
}

// Build resolves each page's recorded links against the pages themselves.
// Node i corresponds to pages[i].
func Build(domain string, pages []crawl.Page) *SiteGraph {
	g := &SiteGraph{
		Domain: domain,
		URLs:   make([]string, len(pages)),
		Out:    make([][]int, len(pages)),
		In:     make([][]int, len(pages)),
	}
	index := make(map[string]int, len(pages))
	for i, p := range pages {
		g.URLs[i] = p.URL
		if _, dup := index[p.URL]; !dup {
			index[p.URL] = i
		}
	}

	for i, p := range pages {
		seen := make(map[int]struct{}, len(p.Links))
		for _, link := range p.Links {
			j, ok := index[crawl.CanonicalURL(link)]
			if !ok {
				g.Dropped++
				continue
			}
			if j == i {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			g.Out[i] = append(g.Out[i], j)
		}
		sort.Ints(g.Out[i])
		for _, j := range g.Out[i] {
			g.In[j] = append(g.In[j], i)
		}
	}
	return g
}
