// Package watch reruns work when files under a set of directories change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"loggerbuild/internal/logging"
)

// DefaultDebounce is how long the watcher waits for a burst of events to
// settle before calling OnChange.
const DefaultDebounce = 300 * time.Millisecond

// ChangeFunc handles one settled batch of changed paths, sorted.
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher watches Dirs recursively. Directories created later are picked up.
type Watcher struct {
	Dirs     []string
	Debounce time.Duration

	// Match filters changed paths. Nil accepts everything.
	Match func(path string) bool

	OnChange ChangeFunc
	Log      *logging.Logger

	ready chan struct{}
}

// New returns a Watcher with the default debounce.
func New(dirs []string, onChange ChangeFunc, log *logging.Logger) *Watcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Watcher{
		Dirs:     dirs,
		Debounce: DefaultDebounce,
		OnChange: onChange,
		Log:      log,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once every directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run blocks until ctx is cancelled. OnChange runs on the Run goroutine, so
// batches never overlap; events arriving meanwhile form the next batch.
func (w *Watcher) Run(ctx context.Context) error {
	if w.OnChange == nil {
		return errors.New("watch: OnChange is required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	watched := 0
	for _, dir := range w.Dirs {
		n, err := w.addTree(fw, dir)
		if err != nil {
			return err
		}
		watched += n
	}
	if watched == 0 {
		return errors.New("watch: no existing directories to watch")
	}
	w.Log.Info("watching for changes", "dirs", w.Dirs, "debounce", w.Debounce.String())
	if w.ready != nil {
		close(w.ready)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
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
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if _, err := w.addTree(fw, ev.Name); err != nil {
						w.Log.Warn("cannot watch new directory", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if w.Match != nil && !w.Match(ev.Name) {
				continue
			}
			w.Log.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Log.Warn("watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			w.OnChange(ctx, changed)
		}
	}
}

// addTree watches dir and every directory below it. A missing root is
// skipped with a warning.
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) (int, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		w.Log.Warn("watch directory does not exist", "dir", root)
		return 0, nil
	}
	n := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watch: adding %s: %w", p, err)
		}
		n++
		return nil
	})
	return n, err
}
