package snapshot

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index/memindex"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/generation"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/notify"
	apperrors "github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/errors"
)

// memOpener serves a one-document memindex whose ID is the generation dir.
type memOpener struct {
	mu      sync.Mutex
	opened  []*memindex.Index
	failFor string
}

func (o *memOpener) open(dir string) (index.Searcher, error) {
	if dir == o.failFor {
		return nil, assert.AnError
	}
	m := memindex.New()
	if err := m.Add(document.Document{ID: filepath.Base(dir), Body: "generation"}); err != nil {
		return nil, err
	}
	o.mu.Lock()
	o.opened = append(o.opened, m)
	o.mu.Unlock()
	return m, nil
}

func publish(t *testing.T, root string) *generation.Generation {
	t.Helper()
	g, err := generation.New(root)
	require.NoError(t, err)
	require.NoError(t, g.WriteManifest(&generation.Manifest{Pages: 1}))
	require.NoError(t, g.Publish())
	return g
}

func TestAcquireBeforeLoad(t *testing.T) {
	h := NewHolder(t.TempDir(), (&memOpener{}).open, nil)
	_, err := h.Acquire()
	assert.ErrorIs(t, err, apperrors.ErrIndexUnavailable)

	_, _, err = h.Reload(context.Background())
	assert.ErrorIs(t, err, generation.ErrNoGeneration)
}

func TestReloadSwapsAndRetires(t *testing.T) {
	root := t.TempDir()
	op := &memOpener{}
	h := NewHolder(root, op.open, nil)
	ctx := context.Background()

	first := publish(t, root)
	swapped, gen, err := h.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.Equal(t, first.ID, gen)

	swapped, _, err = h.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, swapped, "same generation is not reopened")

	// a request in flight on the old generation
	held, err := h.Acquire()
	require.NoError(t, err)

	second := publish(t, root)
	swapped, gen, err = h.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.Equal(t, second.ID, gen)

	// the held snapshot is still searchable until released
	n, err := held.Index.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	held.Release()

	cur, err := h.Acquire()
	require.NoError(t, err)
	assert.Equal(t, second.ID, cur.Generation)
	cur.Release()

	require.NoError(t, h.Close())
	_, err = op.opened[0].DocCount()
	assert.ErrorIs(t, err, index.ErrClosed)
	_, err = op.opened[1].DocCount()
	assert.ErrorIs(t, err, index.ErrClosed)
}

func TestFailedReloadKeepsServing(t *testing.T) {
	root := t.TempDir()
	op := &memOpener{}
	h := NewHolder(root, op.open, nil)
	ctx := context.Background()

	first := publish(t, root)
	_, _, err := h.Reload(ctx)
	require.NoError(t, err)

	broken := publish(t, root)
	op.failFor = broken.Dir
	swapped, gen, err := h.Reload(ctx)
	assert.Error(t, err)
	assert.False(t, swapped)
	assert.Equal(t, first.ID, gen)
	assert.Equal(t, first.ID, h.Current().Generation)
}

func TestServeGenerationDirectory(t *testing.T) {
	root := t.TempDir()
	g := publish(t, root)
	h := NewHolder(g.Dir, (&memOpener{}).open, nil)

	_, gen, err := h.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, g.ID, gen)
	assert.Equal(t, 1, h.Current().Manifest.Pages)
}

func TestConcurrentAcquireDuringReloads(t *testing.T) {
	root := t.TempDir()
	h := NewHolder(root, (&memOpener{}).open, nil)
	publish(t, root)
	_, _, err := h.Reload(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				s, err := h.Acquire()
				if !assert.NoError(t, err) {
					return
				}
				_, err = s.Index.DocCount()
				assert.NoError(t, err, "acquired snapshot must never be closed")
				s.Release()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		publish(t, root)
		_, _, err := h.Reload(context.Background())
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
	require.NoError(t, h.Close())
}

func TestHandleIndexComplete(t *testing.T) {
	root := t.TempDir()
	h := NewHolder(root, (&memOpener{}).open, nil)
	g := publish(t, root)

	handle := h.HandleIndexComplete()
	require.NoError(t, handle(context.Background(), nil, []byte("{garbage")))
	assert.Nil(t, h.Current())

	payload, err := json.Marshal(notify.IndexComplete{Generation: g.ID})
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), []byte(g.ID), payload))
	assert.Equal(t, g.ID, h.Current().Generation)
}

func TestWatchReloadsOnPublish(t *testing.T) {
	root := t.TempDir()
	h := NewHolder(root, (&memOpener{}).open, nil)
	publish(t, root)
	_, _, err := h.Reload(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	next := publish(t, root)
	assert.Eventually(t, func() bool {
		cur := h.Current()
		return cur != nil && cur.Generation == next.ID
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, h.Close())
}

func TestWatchWithoutCurrent(t *testing.T) {
	h := NewHolder(t.TempDir(), (&memOpener{}).open, nil)
	assert.NoError(t, h.Watch(context.Background()))
}
