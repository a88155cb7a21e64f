// Package snapshot holds the index generation a searcher serves. A reload
// opens the new generation, swaps it in atomically and retires the old one
// once its in-flight requests have finished.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/index/bleveindex"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/generation"
	apperrors "github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/metrics"
)

// Snapshot is one open, immutable generation. Callers obtain it through
// Holder.Acquire and must call Release when done.
type Snapshot struct {
	Generation string
	Dir        string
	Manifest   *generation.Manifest
	Index      index.Searcher
	LoadedAt   time.Time

	mu     sync.RWMutex
	closed bool
}

func (s *Snapshot) Release() {
	s.mu.RUnlock()
}

// retire waits for every holder to release, then closes the index.
func (s *Snapshot) retire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.Index.Close()
}

// Opener opens the index stored in a generation directory.
type Opener func(dir string) (index.Searcher, error)

func OpenBleve(dir string) (index.Searcher, error) {
	return bleveindex.Open(filepath.Join(dir, generation.IndexDir))
}

type Holder struct {
	path     string
	open     Opener
	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
	retiring sync.WaitGroup
	static   bool
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewHolder serves the generation found at path, which may be an index root
// holding CURRENT or a generation directory. Nothing is opened until Reload.
func NewHolder(path string, open Opener, m *metrics.Metrics) *Holder {
	if open == nil {
		open = OpenBleve
	}
	return &Holder{
		path:    path,
		open:    open,
		metrics: m,
		logger:  slog.Default().With("component", "snapshot-holder"),
	}
}

// NewStatic returns a Holder that serves idx and never reloads. It backs
// tools that open a single generation and tests.
func NewStatic(gen string, m *generation.Manifest, idx index.Searcher) *Holder {
	h := NewHolder("", func(string) (index.Searcher, error) { return idx, nil }, nil)
	h.static = true
	if m == nil {
		m = &generation.Manifest{ID: gen}
	}
	h.current.Store(&Snapshot{Generation: gen, Manifest: m, Index: idx, LoadedAt: time.Now()})
	return h
}

// Path is the index root or generation directory being served.
func (h *Holder) Path() string {
	return h.path
}

// Acquire returns the current snapshot, read-locked.
func (h *Holder) Acquire() (*Snapshot, error) {
	for {
		s := h.current.Load()
		if s == nil {
			return nil, apperrors.New(apperrors.ErrIndexUnavailable, 503, "no index loaded")
		}
		s.mu.RLock()
		if !s.closed {
			return s, nil
		}
		// retired between Load and RLock; the pointer already moved on
		s.mu.RUnlock()
	}
}

// Current returns the current snapshot for reading its metadata only. Its
// index may be closed at any time; use Acquire to search.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Reload re-resolves the served path and swaps in its generation if it
// differs from the current one.
func (h *Holder) Reload(ctx context.Context) (bool, string, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	if h.static {
		return false, h.generation(), nil
	}

	dir, err := generation.Resolve(h.path)
	if err != nil {
		h.metrics.SnapshotSwapped(false, 0)
		return false, h.generation(), fmt.Errorf("resolving index: %w", err)
	}
	if cur := h.current.Load(); cur != nil && cur.Dir == dir {
		return false, cur.Generation, nil
	}
	if err := ctx.Err(); err != nil {
		return false, h.generation(), err
	}

	snap, err := h.openSnapshot(dir)
	if err != nil {
		h.metrics.SnapshotSwapped(false, 0)
		h.logger.Error("reload failed, keeping current generation", "dir", dir, "error", err)
		return false, h.generation(), err
	}

	old := h.current.Swap(snap)
	pages, _ := snap.Index.DocCount()
	h.metrics.SnapshotSwapped(true, pages)
	h.logger.Info("serving index generation", "generation", snap.Generation, "pages", pages)

	if old != nil {
		h.retiring.Add(1)
		go func() {
			defer h.retiring.Done()
			if err := old.retire(); err != nil {
				h.logger.Warn("closing retired generation failed", "generation", old.Generation, "error", err)
			}
			h.logger.Debug("generation retired", "generation", old.Generation)
		}()
	}
	return true, snap.Generation, nil
}

func (h *Holder) generation() string {
	if cur := h.current.Load(); cur != nil {
		return cur.Generation
	}
	return ""
}

func (h *Holder) openSnapshot(dir string) (*Snapshot, error) {
	m, err := generation.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	idx, err := h.open(dir)
	if err != nil {
		return nil, err
	}
	id := m.ID
	if id == "" {
		id = filepath.Base(dir)
	}
	return &Snapshot{
		Generation: id,
		Dir:        dir,
		Manifest:   m,
		Index:      idx,
		LoadedAt:   time.Now(),
	}, nil
}

// Close retires the current snapshot and waits for every retirement.
func (h *Holder) Close() error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	var err error
	if old := h.current.Swap(nil); old != nil {
		err = old.retire()
	}
	h.retiring.Wait()
	return err
}
