package watch

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces bursts of change notifications. Paths added within
// window of each other are flushed once, sorted and deduplicated.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	paths    map[string]struct{}
	mu       sync.Mutex
	timer    *time.Timer
	onFlush  func([]string)
	stopped  bool
}

// NewDebouncer creates a debouncer. A batch reaching maxBatch distinct paths
// is flushed immediately; maxBatch <= 0 disables that limit.
func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]string)) *Debouncer {
	return &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		paths:    make(map[string]struct{}),
		onFlush:  onFlush,
	}
}

// Add records a changed path and restarts the quiet-period timer.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()

	if d.stopped {
		d.mu.Unlock()
		return
	}

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.paths[path] = struct{}{}

	if d.maxBatch > 0 && len(d.paths) >= d.maxBatch {
		d.flushLocked()
		return
	}

	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if !d.stopped {
			d.flushLocked()
		} else {
			d.mu.Unlock()
		}
	})

	d.mu.Unlock()
}

// flushLocked must be called with mu held and releases it.
func (d *Debouncer) flushLocked() {
	paths := make([]string, 0, len(d.paths))
	for p := range d.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	d.paths = make(map[string]struct{})

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.mu.Unlock()

	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}

// Stop cancels the pending flush and drops any queued paths.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.paths = make(map[string]struct{})
}
