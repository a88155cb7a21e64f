package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Skip reasons reported for records that did not become Pages.
const (
	SkipUnreadable = "unreadable"
	SkipCorrupt    = "corrupt"
	SkipInvalid    = "invalid"
	SkipDuplicate  = "duplicate"
)

// Skip describes one rejected record.
type Skip struct {
	File   string
	Reason string
	Err    error
}

// Domain is the loaded crawl output of one site.
type Domain struct {
	Name    string
	Pages   []Page
	Skipped []Skip
}

// Loader reads a crawl output directory.
type Loader struct {
	root   string
	rules  Rules
	logger *slog.Logger
}

func NewLoader(root string, rules Rules) *Loader {
	return &Loader{
		root:   root,
		rules:  rules,
		logger: slog.Default().With("component", "crawl-loader"),
	}
}

// Domains lists the domain directories under the crawl root, sorted.
func (l *Loader) Domains() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("reading crawl root %s: %w", l.root, err)
	}
	var domains []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			domains = append(domains, e.Name())
		}
	}
	sort.Strings(domains)
	return domains, nil
}

// LoadDomain reads every record of one domain. Bad records are skipped and
// reported in Domain.Skipped; only a missing or unreadable domain directory
// is an error. Pages are sorted by URL.
func (l *Loader) LoadDomain(ctx context.Context, name string) (*Domain, error) {
	dir := filepath.Join(l.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading domain %s: %w", name, err)
	}

	d := &Domain{Name: name}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		page, reason, err := l.loadFile(path, name)
		if err != nil {
			l.logger.Warn("skipping crawl record", "domain", name, "file", e.Name(), "reason", reason, "error", err)
			d.Skipped = append(d.Skipped, Skip{File: e.Name(), Reason: reason, Err: err})
			continue
		}
		if _, dup := seen[page.URL]; dup {
			d.Skipped = append(d.Skipped, Skip{File: e.Name(), Reason: SkipDuplicate,
				Err: fmt.Errorf("url %s already loaded", page.URL)})
			continue
		}
		seen[page.URL] = struct{}{}
		d.Pages = append(d.Pages, *page)
	}
	sort.Slice(d.Pages, func(i, j int) bool { return d.Pages[i].URL < d.Pages[j].URL })

	l.logger.Debug("domain loaded", "domain", name, "pages", len(d.Pages), "skipped", len(d.Skipped))
	return d, nil
}

func (l *Loader) loadFile(path, domain string) (*Page, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, SkipUnreadable, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, SkipCorrupt, err
	}

	page := &Page{
		URL:      CanonicalURL(rec.URL),
		Domain:   domain,
		Title:    strings.TrimSpace(rec.Title),
		Headings: rec.Headings,
		Body:     rec.Text,
		Code:     rec.Code,
		Links:    rec.Links,
	}
	if page.URL == "" {
		page.URL = CanonicalURL(urlFromFileName(filepath.Base(path)))
	}
	page.CrawledAt = crawledAt(rec.CrawledAt, path)

	if err := l.rules.Validate(page); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, SkipInvalid, err
		}
		return nil, SkipCorrupt, err
	}
	return page, "", nil
}

// urlFromFileName reverses the crawler's file naming: "/" is stored as
// "%2F" and ".json" is appended.
func urlFromFileName(name string) string {
	return strings.ReplaceAll(strings.TrimSuffix(name, ".json"), "%2F", "/")
}

// FileName is the crawler's file name for url.
func FileName(url string) string {
	return strings.ReplaceAll(url, "/", "%2F") + ".json"
}

func crawledAt(raw, path string) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	if info, err := os.Stat(path); err == nil {
		return info.ModTime().UTC()
	}
	return time.Time{}
}
