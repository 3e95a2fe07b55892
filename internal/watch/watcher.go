// Package watch re-runs a callback whenever one of a fixed set of files
// changes. Parent directories are watched rather than the files, so editors
// and tools that replace a file by renaming over it are still noticed.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/ampbuild/internal/ctxlog"
)

// DefaultWindow is the quiet period before a batch of changes is reported.
const DefaultWindow = 300 * time.Millisecond

// Watcher reports changes to a set of files.
type Watcher struct {
	files    map[string]struct{}
	window   time.Duration
	onChange func(ctx context.Context, changed []string)

	fs   *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// New creates a watcher for paths. onChange runs on its own goroutine,
// never concurrently with itself.
func New(paths []string, window time.Duration, onChange func(ctx context.Context, changed []string)) *Watcher {
	if window <= 0 {
		window = DefaultWindow
	}
	files := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		files[abs] = struct{}{}
	}
	return &Watcher{files: files, window: window, onChange: onChange, done: make(chan struct{})}
}

// Start installs the watches and returns. Events are processed until ctx
// is cancelled, after which Done is closed.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}
	w.fs = fsw
	ctxlog.FromContext(ctx).Info("Watching configuration files.", "files", len(w.files), "dirs", len(dirs))

	go w.loop(ctx)
	return nil
}

// Done is closed once the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} { return w.done }

func (w *Watcher) loop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	var mu sync.Mutex
	deb := NewDebouncer(w.window, 0, func(changed []string) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx, changed)
	})
	defer w.once.Do(func() {
		deb.Stop()
		w.fs.Close()
		close(w.done)
	})

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if _, watched := w.files[filepath.Clean(ev.Name)]; !watched || !hasAny(ev.Op, relevant) {
				continue
			}
			logger.Debug("Configuration file changed.", "path", ev.Name, "op", ev.Op.String())
			deb.Add(filepath.Clean(ev.Name))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func hasAny(op, mask fsnotify.Op) bool { return op&mask != 0 }
