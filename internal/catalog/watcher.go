package catalog

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/media"
)

// EventCallback is called after a watcher-driven catalog change.
// kind is one of "created" or "deleted".
type EventCallback func(kind string, id string)

// Watch starts an fsnotify watcher on the media root and keeps the
// catalog in step with files dropped into or removed from repository
// directories, until ctx is cancelled. It calls cb (if non-nil) after
// each successful catalog mutation.
//
// New directories created at runtime are automatically added to the
// watch list. Rename events trigger a debounced reconciliation pass.
func Watch(ctx context.Context, db *DB, store media.Store, mediaRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, mediaRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", mediaRoot))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(db, store, logger); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories: add to the watch list and schedule a
			// pass over anything already inside them.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					scheduleReconcile()
					continue
				}
			}

			rel, relErr := filepath.Rel(mediaRoot, absPath)
			if relErr != nil || strings.HasPrefix(filepath.Base(rel), ".") {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&fsnotify.Create != 0:
				if _, err := db.NodeIDByMediaPath(rel); err == nil {
					continue // already registered (API upload)
				}
				infos, listErr := store.List(rel)
				if listErr != nil || len(infos) != 1 {
					continue
				}
				if regErr := registerFile(db, infos[0]); regErr != nil {
					logger.Warn("watcher: register failed", slog.String("path", rel), slog.String("error", regErr.Error()))
					continue
				}
				if id, err := db.NodeIDByMediaPath(rel); err == nil {
					logger.Debug("watcher: registered", slog.String("path", rel))
					if cb != nil {
						cb("created", id)
					}
				}

			case ev.Op&fsnotify.Remove != 0:
				id, err := db.NodeIDByMediaPath(rel)
				if errors.Is(err, apperr.ErrNotFound) {
					continue
				}
				if err != nil {
					continue
				}
				if delErr := db.DeleteNode(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", id)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new
				// path arrives as a separate Create event. Drop the old
				// node now and reconcile shortly after for stragglers.
				if id, err := db.NodeIDByMediaPath(rel); err == nil {
					if delErr := db.DeleteNode(id); delErr == nil {
						logger.Debug("watcher: rename old deleted", slog.String("path", rel))
						if cb != nil {
							cb("deleted", id)
						}
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
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
