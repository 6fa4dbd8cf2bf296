package server

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces rapid save bursts into one invalidation.
const watchDebounce = 500 * time.Millisecond

// watcher invalidates analysis when Go source under the project root
// changes. Editors often write several events per save, so changes are
// debounced before onChange fires.
type watcher struct {
	root     string
	logger   *log.Logger
	onChange func()
	debounce time.Duration
}

func newWatcher(root string, logger *log.Logger, onChange func()) *watcher {
	return &watcher{
		root:     root,
		logger:   logger,
		onChange: onChange,
		debounce: watchDebounce,
	}
}

// watch blocks until ctx is cancelled or the underlying watcher fails.
func (w *watcher) watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", w.root)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			// New directories need explicit watches.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = fsw.Add(ev.Name)
					continue
				}
			}
			if !relevant(ev) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.logger.Debug("project changed", "path", ev.Name)
				w.onChange()
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// addTree registers the project's directories, skipping the trees the
// scanner never reads.
func (w *watcher) addTree(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != w.root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
			name == "vendor" || name == "testdata" || name == "node_modules") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

// relevant filters events down to Go source and go.mod changes.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(ev.Name)
	return strings.HasSuffix(base, ".go") || base == "go.mod"
}
