package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/generation"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/internal/indexer/notify"
	"github.com/Adithya-Monish-Kumar-K/Doc-Search-Engine/pkg/kafka"
)

const watchDebounce = 100 * time.Millisecond

// Watch reloads whenever CURRENT under the served index root changes. It
// blocks until ctx is done. Serving a bare generation directory has nothing
// to watch and returns immediately.
func (h *Holder) Watch(ctx context.Context) error {
	if h.static {
		return nil
	}
	if _, err := os.Stat(filepath.Join(h.path, generation.CurrentFile)); err != nil {
		h.logger.Info("index path has no CURRENT pointer, not watching", "path", h.path)
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	// CURRENT is replaced by rename, so watch the directory
	if err := w.Add(h.path); err != nil {
		return fmt.Errorf("watching %s: %w", h.path, err)
	}
	h.logger.Info("watching index root", "path", h.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != generation.CurrentFile || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("watcher error", "error", err)
		case <-fire:
			fire = nil
			if _, _, err := h.Reload(ctx); err != nil {
				h.logger.Error("reload after CURRENT change failed", "error", err)
			}
		}
	}
}

// HandleIndexComplete returns a Kafka handler that reloads on every
// index.complete event. Undecodable events are dropped.
func (h *Holder) HandleIndexComplete() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[notify.IndexComplete](value)
		if err != nil {
			h.logger.Error("failed to decode index.complete event", "error", err, "key", string(key))
			return nil
		}
		swapped, gen, err := h.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reloading for %s: %w", ev.Generation, err)
		}
		h.logger.Info("index.complete handled", "announced", ev.Generation, "serving", gen, "swapped", swapped)
		return nil
	}
}
