package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/linkmark/internal/extractor"
	"github.com/starford/linkmark/internal/logfields"
	"github.com/starford/linkmark/internal/storage"
)

// Watcher event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// watchLoop carries the state shared by the event handlers of one Watch.
type watchLoop struct {
	db     *DB
	src    Sources
	svc    *extractor.Service
	match  *storage.Matcher
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// Watch starts an fsnotify watcher on the sources root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after each
// successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass that removes index entries
// whose files no longer exist and indexes files that are not indexed yet.
func Watch(ctx context.Context, db *DB, src Sources, svc *extractor.Service, logger *slog.Logger, cb EventCallback) error {
	match, err := storage.NewMatcher(src.Includes, src.Excludes)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := src.Store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	l := &watchLoop{db: db, src: src, svc: svc, match: match, root: root, logger: logger, cb: cb}

	logger.Info("watcher: started", logfields.Root(root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
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
			l.reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if l.handle(w, ev) {
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", logfields.Error(watchErr))
		}
	}
}

// handle applies one fsnotify event and reports whether a reconciliation
// pass is needed.
func (l *watchLoop) handle(w *fsnotify.Watcher, ev fsnotify.Event) bool {
	absPath := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(absPath); err == nil && info.IsDir() {
			if err := addDirsRecursive(w, absPath); err != nil {
				l.logger.Warn("watcher: add new dir failed", logfields.Path(absPath), logfields.Error(err))
			} else {
				l.logger.Debug("watcher: watching new dir", logfields.Path(absPath))
			}
			l.indexNewDir(absPath)
			return false
		}
	}

	rel, err := filepath.Rel(l.root, absPath)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if !l.match.Match(rel) {
		return false
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := EventUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = EventCreated
		}
		l.index(rel, kind)

	case ev.Op&fsnotify.Remove != 0:
		l.delete(rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify fires Rename on the old path only; the new path arrives as
		// a separate Create if it stays inside a watched directory.
		l.delete(rel)
		return true
	}
	return false
}

func (l *watchLoop) index(rel, kind string) bool {
	data, err := l.src.Store.Read(rel)
	if err != nil {
		l.logger.Warn("watcher: read failed", logfields.Path(rel), logfields.Error(err))
		return false
	}
	if cs, _ := l.db.GetChecksum(rel); cs == storage.Checksum(data) {
		return false
	}
	if err := indexFile(l.db, l.svc, rel, data); err != nil {
		l.logger.Warn("watcher: index failed", logfields.Path(rel), logfields.Error(err))
		return false
	}
	l.logger.Debug("watcher: indexed", logfields.Path(rel), logfields.Op(kind))
	l.notify(kind, rel)
	return true
}

func (l *watchLoop) delete(rel string) {
	if err := l.db.DeleteDocument(rel); err != nil {
		l.logger.Warn("watcher: delete failed", logfields.Path(rel), logfields.Error(err))
		return
	}
	l.logger.Debug("watcher: deleted", logfields.Path(rel))
	l.notify(EventDeleted, rel)
}

func (l *watchLoop) notify(kind, rel string) {
	if l.cb != nil {
		l.cb(kind, rel)
	}
}

// reconcile compares the index with the sources using batch lookups.
func (l *watchLoop) reconcile() {
	checksums, err := l.db.AllChecksums()
	if err != nil {
		l.logger.Warn("reconcile: all checksums failed", logfields.Error(err))
		return
	}
	paths, err := l.src.Store.Glob(l.src.Includes, l.src.Excludes)
	if err != nil {
		l.logger.Warn("reconcile: glob failed", logfields.Error(err))
		return
	}

	disk := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		disk[p] = struct{}{}
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			l.delete(p)
		}
	}
	for _, p := range paths {
		kind := EventUpdated
		if _, ok := checksums[p]; !ok {
			kind = EventCreated
		}
		if l.index(p, kind) {
			l.logger.Debug("reconcile: indexed", logfields.Path(p))
		}
	}
}

// indexNewDir indexes the matching files found in a newly created directory.
func (l *watchLoop) indexNewDir(dirPath string) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(l.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if l.match.Match(rel) {
			l.index(rel, EventCreated)
		}
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
