package crawl

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxTitleLength = 1024

// Rules bound which records become Pages.
type Rules struct {
	MinBodyLength int
	MaxBodyBytes  int
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// Validate checks the URL, title and body of a page against the rules and
// returns a ValidationError listing every failed field.
func (r Rules) Validate(p *Page) error {
	errs := make(map[string]string)

	if p.URL == "" {
		errs["url"] = "url is required"
	} else if u, err := url.Parse(p.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs["url"] = "url must be an absolute http(s) url"
	}
	if len(p.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	body := strings.TrimSpace(p.Body)
	if n := utf8.RuneCountInString(body); n < r.MinBodyLength {
		errs["text"] = fmt.Sprintf("text has %d characters, need at least %d", n, r.MinBodyLength)
	} else if r.MaxBodyBytes > 0 && len(p.Body) > r.MaxBodyBytes {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", r.MaxBodyBytes)
	}
	if !utf8.ValidString(p.Body) {
		errs["text"] = "text is not valid UTF-8"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
