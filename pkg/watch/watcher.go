// Package watch re-runs analysis when Java sources under a project change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/javaperf/internal/logging"
	"github.com/panbanda/javaperf/internal/scanner"
	"github.com/panbanda/javaperf/pkg/config"
)

// DefaultDebounce is how long a batch of changes must be quiet before the
// callback fires.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the changed files of one batch, relative to the
// watched root, slash-separated and sorted.
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher monitors a project tree and reports debounced batches of changed
// Java files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	scanner   *scanner.Scanner
	logger    *slog.Logger
	debounce  time.Duration
	root      string
	callback  ChangeFunc

	mu       sync.Mutex
	pending  map[string]struct{}
	lastSeen time.Time
}

// NewWatcher creates a watcher for root. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(root string, cfg *config.Config, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		scanner:   scanner.NewScanner(cfg),
		logger:    logger,
		debounce:  debounce,
		root:      abs,
		pending:   make(map[string]struct{}),
	}, nil
}

// SetCallback sets the function called for each batch.
func (w *Watcher) SetCallback(cb ChangeFunc) {
	w.callback = cb
}

// Start watches until ctx is done. It returns ctx.Err() on cancellation and
// nil when the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", w.root, "dirs", len(w.fsWatcher.WatchList()))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.config.ExcludesDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// New directories are watched as they appear; files already inside
	// them are picked up on the next event.
	if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
		if err := w.addTree(event.Name); err != nil {
			w.logger.Debug("failed to watch new directory", "path", event.Name, "error", err)
		}
		return
	}

	rel, ok := w.relevant(event.Name)
	if !ok {
		return
	}
	// Files that still exist also go through discovery rules, .gitignore
	// included. Removed files only have their path to go on.
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		if scan, err := w.scanner.ScanFile(w.root, event.Name); err == nil && !scan {
			return
		}
	}

	w.mu.Lock()
	w.pending[rel] = struct{}{}
	w.lastSeen = time.Now()
	w.mu.Unlock()
}

// relevant reports whether path is a non-excluded Java source under root,
// returning its root-relative form.
func (w *Watcher) relevant(path string) (string, bool) {
	if !strings.HasSuffix(path, ".java") {
		return "", false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.config.ShouldExclude(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(max(w.debounce/5, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if batch := w.takeReady(time.Now()); len(batch) > 0 && w.callback != nil {
				w.callback(ctx, batch)
			}
		}
	}
}

// takeReady drains the pending set once no change has arrived for the
// debounce period.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 || now.Sub(w.lastSeen) < w.debounce {
		return nil
	}
	batch := make([]string, 0, len(w.pending))
	for rel := range w.pending {
		batch = append(batch, rel)
	}
	clear(w.pending)
	sort.Strings(batch)
	return batch
}

// Stop closes the underlying watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
