// Package crawltest writes crawler-format records for tests.
package crawltest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/crawl"
)

// Filler pads bodies past the loader's minimum length.
var Filler = strings.Repeat(" Reference material about the standard library and its packages.", 4)

// Page is a record as the crawler writes it.
type Page struct {
	URL      string   `json:"url"`
	Domain   string   `json:"domain"`
	Title    string   `json:"title"`
	Headings string   `json:"headings"`
	Text     string   `json:"text"`
	Code     string   `json:"code"`
	Links    []string `json:"links"`
}

// Write stores pages under root/<domain>/ using the crawler's file naming.
func Write(t testing.TB, root, domain string, pages ...Page) {
	t.Helper()
	dir := filepath.Join(root, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range pages {
		if p.Domain == "" {
			p.Domain = domain
		}
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, crawl.FileName(p.URL)), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// WriteRaw stores arbitrary bytes as a record file.
func WriteRaw(t testing.TB, root, domain, name string, data []byte) {
	t.Helper()
	dir := filepath.Join(root, domain)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}
