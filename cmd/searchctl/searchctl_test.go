package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/crawl"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/crawl/crawltest"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/authority"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/proto"
)

func buildIndex(t *testing.T) string {
	t.Helper()
	crawlDir, indexRoot := t.TempDir(), t.TempDir()
	crawltest.Write(t, crawlDir, "docs.python.org",
		crawltest.Page{
			URL: "https://docs.python.org/3/tutorial/datastructures.html", Title: "Data Structures",
			Text: "A list comprehension consists of brackets containing an expression." + crawltest.Filler,
		},
	)
	_, err := indexer.NewBuilder(indexer.Options{
		CrawlDir:  crawlDir,
		IndexRoot: indexRoot,
		Rules:     crawl.Rules{MinBodyLength: 20, MaxBodyBytes: 1 << 20},
		Authority: authority.DefaultConfig(),
		BatchSize: 10,
		Workers:   1,
	}).Build(context.Background())
	require.NoError(t, err)
	return indexRoot
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueryLocalIndex(t *testing.T) {
	root := buildIndex(t)

	out, err := run(t, "query", "--index", root, `"list comprehension"`)
	require.NoError(t, err)
	assert.Contains(t, out, "Data Structures")
	assert.Contains(t, out, "*list comprehension*")

	out, err = run(t, "query", "--index", root, "--json", "domain:go.dev", "list")
	require.NoError(t, err)
	var resp proto.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Results)
}

func TestStatsLocalIndex(t *testing.T) {
	root := buildIndex(t)
	out, err := run(t, "stats", "--index", root, "--json")
	require.NoError(t, err)

	var stats proto.StatsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, uint64(1), stats.TotalPages)
	require.Len(t, stats.Domains, 1)
	assert.Equal(t, "docs.python.org", stats.Domains[0].Domain)
}

func TestMissingIndexFails(t *testing.T) {
	_, err := run(t, "stats", "--index", t.TempDir())
	assert.Error(t, err)
}

func TestReloadNeedsRPC(t *testing.T) {
	_, err := run(t, "reload")
	assert.EqualError(t, err, "reload needs --rpc")
}

func TestEmphasize(t *testing.T) {
	r := proto.SearchResult{
		Snippet:    "Quick Start\n  guide",
		Highlights: []proto.Highlight{{Start: 0, End: 5}},
	}
	assert.Equal(t, "*Quick* Start guide", emphasize(r))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KiB", humanBytes(1536))
	assert.Equal(t, "2.0 MiB", humanBytes(2<<20))
}
