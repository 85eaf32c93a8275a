// Package watch drives the linker from file-system events. Rapid-fire
// writes to the same note are coalesced per source path before the linker
// sees them, so a burst of editor saves costs one reconciliation.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives coalesced note events. Implemented by linker.Service.
type Handler interface {
	OnCreated(ctx context.Context, notePath string) (bool, error)
	OnDeleted(ctx context.Context, notePath string) (bool, error)
}

// Watch starts an fsnotify watcher on the vault root and processes note
// change events until ctx is cancelled. Create/Write events are debounced
// per source path; Remove and Rename unlink immediately (the rename's new
// path arrives as its own Create event).
//
// New directories created at runtime are automatically added to the watch
// list. Events are handled one at a time, so the handler never runs
// concurrently with itself.
func Watch(ctx context.Context, h Handler, vaultRoot string, debounce time.Duration, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started",
		slog.String("root", vaultRoot),
		slog.Duration("debounce", debounce))

	// pending holds one timer per dirty source path. Timers fire into
	// dueCh so all map access stays on this goroutine.
	pending := make(map[string]*time.Timer)
	dueCh := make(chan string, 64)

	schedule := func(rel string) {
		if t, ok := pending[rel]; ok {
			t.Reset(debounce)
			return
		}
		pending[rel] = time.AfterFunc(debounce, func() {
			select {
			case dueCh <- rel:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case rel := <-dueCh:
			delete(pending, rel)
			if _, err := h.OnCreated(ctx, rel); err != nil {
				logger.Warn("watcher: process failed",
					slog.String("path", rel),
					slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Pick up any .md files already in the new directory.
					scheduleDir(vaultRoot, absPath, schedule)
					continue
				}
			}

			// Only process .md files from here on.
			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create event and re-links itself.
				if t, ok := pending[rel]; ok {
					t.Stop()
					delete(pending, rel)
				}
				if _, err := h.OnDeleted(ctx, rel); err != nil {
					logger.Warn("watcher: unlink failed",
						slog.String("path", rel),
						slog.String("error", err.Error()))
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// scheduleDir queues every .md file found in a newly created directory.
func scheduleDir(vaultRoot, dirPath string, schedule func(string)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		schedule(filepath.ToSlash(rel))
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
