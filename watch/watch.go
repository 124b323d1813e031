// Package watch runs an action when watched files change. Events are
// debounced per file so an editor's burst of writes triggers one run.
//
// Typical usage:
//
//	w, err := watch.New([]string{"page.html"}, watch.Options{Debounce: 200 * time.Millisecond})
//	defer w.Close()
//	err = w.Run(ctx, func(ctx context.Context, path string) error { return rescan(ctx, path) })
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options tunes the watcher.
type Options struct {
	// Debounce is the quiet period after the last event on a file before the
	// action fires. Default: 200ms.
	Debounce time.Duration
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Debounce <= 0 {
		o.Debounce = 200 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Stats are point-in-time counters.
type Stats struct {
	Events int64 `json:"events"`
	Runs   int64 `json:"runs"`
	Errors int64 `json:"errors"`
}

// Watcher watches a fixed set of files. Parent directories are watched so
// that atomic saves (write to temp, rename over) are seen.
type Watcher struct {
	fs    *fsnotify.Watcher
	paths map[string]bool
	opts  Options

	events atomic.Int64
	runs   atomic.Int64
	errors atomic.Int64
}

// New starts watching paths. Events that arrive before Run are kept.
func New(paths []string, opts Options) (*Watcher, error) {
	opts.defaults()
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: new watcher: %w", err)
	}
	w := &Watcher{fs: fsw, paths: make(map[string]bool, len(paths)), opts: opts}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch: %s: %w", p, err)
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch: add %s: %w", dir, err)
		}
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fs.Close() }

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{Events: w.events.Load(), Runs: w.runs.Load(), Errors: w.errors.Load()}
}

// Run blocks until ctx is cancelled or the watcher is closed, calling
// action with the absolute path of each changed file once its debounce
// window passes. Action errors are logged and counted; watching goes on.
func (w *Watcher) Run(ctx context.Context, action func(ctx context.Context, path string) error) error {
	log := w.opts.Logger
	due := make(chan string)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	log.Info("watch: started", "files", len(w.paths), "debounce", w.opts.Debounce)
	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopped")
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(ev.Name)
			if !w.paths[path] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.events.Add(1)
			if t, ok := pending[path]; ok {
				// A timer that already fired is delivering; its run reads
				// the file after this write.
				if t.Stop() {
					t.Reset(w.opts.Debounce)
				}
				continue
			}
			pending[path] = time.AfterFunc(w.opts.Debounce, func() {
				select {
				case due <- path:
				case <-ctx.Done():
				}
			})

		case path := <-due:
			delete(pending, path)
			w.fire(ctx, log, action, path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.errors.Add(1)
			log.Warn("watch: watcher error", "error", err)
		}
	}
}

func (w *Watcher) fire(ctx context.Context, log *slog.Logger, action func(context.Context, string) error, path string) {
	start := time.Now()
	if err := action(ctx, path); err != nil {
		w.errors.Add(1)
		log.Error("watch: action failed", "path", path, "error", err)
		return
	}
	w.runs.Add(1)
	log.Debug("watch: action done", "path", path, "duration", time.Since(start))
}
