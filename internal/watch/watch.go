// Package watch triggers incremental re-index runs from filesystem events.
// Events are debounced and coalesced: a burst of saves produces one run,
// and events arriving while a run is active mark it dirty so exactly one
// follow-up run happens afterwards. Runs are strictly serialized per
// watcher, since concurrent indexing of one project is unsafe.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a run
const DefaultDebounce = 500 * time.Millisecond

// RunFunc is the re-index trigger. Errors are logged, not fatal: the next
// event gets another chance.
type RunFunc func(ctx context.Context) error

// SkipDirFunc prunes directory subtrees from watching by base name
type SkipDirFunc func(name string) bool

// Watcher drives delta syncs for one project root
type Watcher struct {
	root     string
	debounce time.Duration
	run      RunFunc
	skipDir  SkipDirFunc
	logger   *slog.Logger

	fsw *fsnotify.Watcher
}

// New creates a watcher over root. skipDir may be nil; debounce <= 0 uses
// DefaultDebounce.
func New(root string, debounce time.Duration, run RunFunc, skipDir SkipDirFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     absRoot,
		debounce: debounce,
		run:      run,
		skipDir:  skipDir,
		logger:   logger,
		fsw:      fsw,
	}
	if err := w.addTree(absRoot); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying filesystem watcher
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Watch blocks, dispatching debounced runs until ctx is canceled
func (w *Watcher) Watch(ctx context.Context) error {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		running = make(chan error, 1)
		active  bool
		dirty   bool
	)

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, timerCh = nil, nil
		}
	}

	arm := func() {
		stopTimer()
		timer = time.NewTimer(w.debounce)
		timerCh = timer.C
	}

	start := func() {
		active, dirty = true, false
		go func() { running <- w.run(ctx) }()
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			if active {
				<-running // let the in-flight run finish
			}
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			// New directories join the watch so their files are seen
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("watch new directory failed",
							"path", event.Name, "error", err)
					}
				}
			}
			if active {
				dirty = true
				continue
			}
			arm()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timerCh:
			stopTimer()
			start()

		case err := <-running:
			active = false
			if err != nil {
				w.logger.Error("watch-triggered run failed", "error", err)
			}
			if dirty {
				arm()
			}
		}
	}
}

// relevant filters events down to changes an indexer would care about
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if len(base) > 1 && base[0] == '.' {
		return false
	}
	for _, part := range splitPath(w.rel(event.Name)) {
		if w.skipDir != nil && w.skipDir(part) {
			return false
		}
		if len(part) > 1 && part[0] == '.' {
			return false
		}
	}
	return true
}

// addTree registers root and its non-pruned subdirectories
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root {
			if len(name) > 1 && name[0] == '.' {
				return filepath.SkipDir
			}
			if w.skipDir != nil && w.skipDir(name) {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}

func splitPath(path string) []string {
	return strings.Split(filepath.ToSlash(path), "/")
}
