// Package crawl reads the crawler's output: one directory per domain, one
// JSON record per page. It validates records, skips the bad ones and hands
// the indexer immutable Pages grouped by domain.
package crawl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Page is one crawled document. It is never modified after loading.
type Page struct {
	URL       string
	Domain    string
	Title     string
	Headings  []string
	Body      string
	Code      []string
	Links     []string
	CrawledAt time.Time
}

// record is the on-disk JSON shape written by the crawler.
type record struct {
	URL       string   `json:"url"`
	Domain    string   `json:"domain"`
	Title     string   `json:"title"`
	Headings  textList `json:"headings"`
	Text      string   `json:"text"`
	Code      textList `json:"code"`
	Links     []string `json:"links"`
	CrawledAt string   `json:"crawled_at"`
}

// textList accepts either a JSON array of strings or a single string whose
// lines are the elements (the crawler joins extracted fragments with "\n").
type textList []string

func (t *textList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = splitLines(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*t = items
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// CanonicalURL is the identity used for pages and link resolution: the URL
// with surrounding space and any #fragment removed.
func CanonicalURL(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return u
}
