package generation

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAndResolve(t *testing.T) {
	root := t.TempDir()

	_, err := Resolve(root)
	assert.ErrorIs(t, err, ErrNoGeneration)

	g, err := New(root)
	require.NoError(t, err)
	require.NoError(t, g.WriteDomains([]string{"docs.python.org", "go.dev"}))
	require.NoError(t, g.WriteManifest(&Manifest{
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Pages:     12,
		Domains:   []DomainStat{{Domain: "go.dev", Pages: 7, Converged: true}},
	}))
	require.NoError(t, g.Publish())

	dir, err := Resolve(root)
	require.NoError(t, err)
	assert.Equal(t, g.Dir, dir)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, g.ID, m.ID)
	assert.Equal(t, FormatVersion, m.Version)
	assert.Equal(t, 12, m.Pages)
	stat, ok := m.Domain("go.dev")
	assert.True(t, ok)
	assert.Equal(t, 7, stat.Pages)
	_, ok = m.Domain("nope")
	assert.False(t, ok)

	domains, err := ReadDomains(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.python.org", "go.dev"}, domains)

	// a generation directory resolves to itself
	self, err := Resolve(g.Dir)
	require.NoError(t, err)
	assert.Equal(t, g.Dir, self)

	_, err = os.Stat(filepath.Join(root, CurrentFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestDiscardLeavesCurrentUntouched(t *testing.T) {
	root := t.TempDir()
	first, err := New(root)
	require.NoError(t, err)
	require.NoError(t, first.WriteManifest(&Manifest{}))
	require.NoError(t, first.Publish())

	second, err := New(root)
	require.NoError(t, err)
	require.NoError(t, second.Discard())

	id, err := Current(root)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)
	_, err = os.Stat(second.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestInvalidCurrent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, CurrentFile), []byte("../escape\n"), 0644))
	_, err := Current(root)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoGeneration)
}

func TestManifestVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"version": 99}`), 0644))
	_, err := ReadManifest(dir)
	assert.ErrorContains(t, err, "unsupported index format version 99")
}

func TestPruneKeepsNewestAndCurrent(t *testing.T) {
	root := t.TempDir()
	var gens []*Generation
	for i := 0; i < 4; i++ {
		g, err := New(root)
		require.NoError(t, err)
		gens = append(gens, g)
	}
	// CURRENT still names the oldest, e.g. after a failed rollout
	require.NoError(t, gens[0].Publish())

	removed, err := Prune(root, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{gens[1].ID, gens[2].ID}, removed)

	ids, err := List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{gens[0].ID, gens[3].ID}, ids)
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 10), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 5), 0644))

	n, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(15), n)
}
