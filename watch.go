package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/phobologic/annotate/internal/discover"
	"github.com/phobologic/annotate/internal/lang"
	"github.com/phobologic/annotate/internal/metadata"
)

// projectWatcher re-indexes PHP files under root when they change. Events
// are collected until no new one arrives for debounce.
type projectWatcher struct {
	root     string
	manager  *metadata.Manager
	excludes []glob.Glob
	debounce time.Duration
	logger   *zap.Logger
	out      io.Writer

	// ready is called once every directory is watched.
	ready func()
}

func (w *projectWatcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching", zap.String("root", w.root))
	if w.ready != nil {
		w.ready()
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.logger.Warn("watching new directory", zap.String("path", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			w.flush(pending)
			pending = make(map[string]struct{})
		}
	}
}

// addTree watches dir and every directory below it that discovery would
// descend into.
func (w *projectWatcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *projectWatcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	if lang.ForPath(ev.Name) == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	return !discover.Excluded(w.excludes, rel)
}

// flush re-indexes the pending files in path order. Failures are logged and
// do not stop the watch.
func (w *projectWatcher) flush(pending map[string]struct{}) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			w.logger.Debug("file vanished before re-index", zap.String("path", path))
			continue
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			rel = path
		}
		idx, err := w.manager.Reindex(path)
		if err != nil {
			w.logger.Warn("re-index failed", zap.String("path", rel), zap.Error(err))
			continue
		}
		_, _ = fmt.Fprintf(w.out, "reindexed %s (%d keys)\n", filepath.ToSlash(rel), len(idx.Tags))
	}
}
