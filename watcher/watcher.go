// Package watcher fixes migration files as the EF tooling writes them.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ridoystarlord/dupfix/cleaner"
	"go.uber.org/zap"
)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	FilesChecked  int
	FilesFixed    int
	Errors        int
	LastFixedPath string
	LastEventTime time.Time
}

// Watcher watches a migrations directory and runs the cleaner over every
// matching file once it has stopped changing for the debounce window.
type Watcher struct {
	mu          sync.Mutex
	fsw         *fsnotify.Watcher
	cleaner     *cleaner.Cleaner
	dir         string
	include     []string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	tick        time.Duration
	logger      *zap.Logger
	onFix       func(*cleaner.Result)
	stats       Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before it is cleaned.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounceDur = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// OnFix registers a callback run after each file the watcher rewrites.
func OnFix(fn func(*cleaner.Result)) Option {
	return func(w *Watcher) { w.onFix = fn }
}

// New creates a Watcher for dir. Only files whose base name matches one of
// the include globs are cleaned.
func New(dir string, c *cleaner.Cleaner, include []string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "watch", Path: dir, Err: errors.New("not a directory")}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:         fsw,
		cleaner:     c,
		dir:         dir,
		include:     include,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // EF writes migration, designer and snapshot in quick succession
		tick:        100 * time.Millisecond,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is cancelled. Subdirectories present at start are
// watched too.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && (d.Name() == "bin" || d.Name() == "obj") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		w.logger.Debug("watching directory", zap.String("path", path))
		return nil
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processDebounced()
		}
	}
}

// Close releases the underlying fsnotify watcher. Run closes it on return.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Stats returns a copy of the current counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !cleaner.MatchesInclude(event.Name, w.include) {
		return
	}

	w.logger.Debug("file event", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processDebounced cleans the files that have settled past the debounce window.
func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.fix(path)
	}
}

func (w *Watcher) fix(path string) {
	res, err := w.cleaner.FixFile(path, false)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// renamed or deleted before it settled
			return
		}
		w.logger.Error("failed to clean file", zap.String("path", path), zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.FilesChecked++
	if res.Changed {
		w.stats.FilesFixed++
		w.stats.LastFixedPath = path
	}
	w.mu.Unlock()

	// our own write comes back as an event; the second pass is a no-op
	if res.Changed && w.onFix != nil {
		w.onFix(res)
	}
}
