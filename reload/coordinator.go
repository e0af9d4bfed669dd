// Package reload connects file change notifications to program rebuilds.
//
// The watch goroutine calls Notify; the render goroutine calls Drain once per
// frame. The channel between them is the only state the two share.
package reload

import (
	"log/slog"
	"sync"

	"github.com/gogpu/shaderlive/internal/logging"
	"github.com/gogpu/shaderlive/watch"
)

// DefaultQueueSize is the queue capacity used when none is configured.
const DefaultQueueSize = 256

// Programs is the part of the program registry the coordinator drives.
type Programs interface {
	Reload(name string) bool
	Dependencies(name string) []string
	Dependents(path string) []string
}

// Watcher registers and drops file callbacks.
type Watcher interface {
	AddWatch(path string, cb watch.Callback) error
	RemoveWatch(path string)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithQueueSize sets the queue capacity. Notify blocks while the queue is
// full.
func WithQueueSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logging.OrNop(l)
	}
}

// Coordinator queues changed paths and applies them on the render goroutine.
//
// Notify and Close may be called from any goroutine. Drain, Track and
// Untrack belong to the goroutine that owns the registry.
type Coordinator struct {
	programs Programs
	watcher  Watcher
	logger   *slog.Logger
	size     int

	queue     chan string
	done      chan struct{}
	closeOnce sync.Once

	// tracked maps a program name to the paths watched for it.
	tracked map[string][]string
	// refs counts the programs watching each path.
	refs map[string]int
}

// New creates a coordinator for programs. Changes are observed through w.
//
// Notify runs inside w's callbacks and blocks while the queue is full, so
// Close the coordinator before stopping w; otherwise the stop can wait on a
// blocked callback forever.
func New(programs Programs, w Watcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		programs: programs,
		watcher:  w,
		logger:   logging.Nop(),
		size:     DefaultQueueSize,
		done:     make(chan struct{}),
		tracked:  make(map[string][]string),
		refs:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.queue = make(chan string, c.size)
	return c
}

// Notify queues a changed path. It blocks while the queue is full and
// returns immediately once the coordinator is closed.
func (c *Coordinator) Notify(path string) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.queue <- path:
	case <-c.done:
	}
}

// Pending returns the number of queued paths.
func (c *Coordinator) Pending() int {
	return len(c.queue)
}

// Drain applies the paths queued so far and returns the number of reloads
// it ran. Each affected program is reloaded once, in order of first
// mention; its watches then follow the files of the new build.
func (c *Coordinator) Drain() int {
	n := len(c.queue)
	if n == 0 {
		return 0
	}

	var paths []string
	for range n {
		p := <-c.queue
		if len(paths) > 0 && paths[len(paths)-1] == p {
			continue
		}
		paths = append(paths, p)
	}

	seen := make(map[string]bool)
	var names []string
	for _, p := range paths {
		for _, name := range c.programs.Dependents(p) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	for _, name := range names {
		ok := c.programs.Reload(name)
		c.logger.Debug("reload: program rebuilt", "name", name, "replaced", ok)
		if _, tracked := c.tracked[name]; tracked {
			c.Track(name)
		}
	}
	c.logger.Debug("reload: drained", "paths", n, "programs", len(names))
	return len(names)
}

// Track watches every file the latest build of name read. Calling it again
// replaces the previous set.
func (c *Coordinator) Track(name string) {
	deps := c.programs.Dependencies(name)
	old := c.tracked[name]

	var kept []string
	for _, p := range deps {
		if c.acquire(p) {
			kept = append(kept, p)
		}
	}
	for _, p := range old {
		c.release(p)
	}
	c.tracked[name] = kept
}

// Untrack drops the watches held for name.
func (c *Coordinator) Untrack(name string) {
	old, ok := c.tracked[name]
	if !ok {
		return
	}
	delete(c.tracked, name)
	for _, p := range old {
		c.release(p)
	}
}

// Watched returns how many programs hold a watch on path.
func (c *Coordinator) Watched(path string) int {
	return c.refs[path]
}

// Close unblocks pending Notify calls and drops every watch. Queued paths
// are discarded.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	for name := range c.tracked {
		c.Untrack(name)
	}
}

func (c *Coordinator) acquire(path string) bool {
	if c.refs[path] == 0 {
		if err := c.watcher.AddWatch(path, c.Notify); err != nil {
			c.logger.Warn("reload: cannot watch file", "path", path, "error", err)
			return false
		}
	}
	c.refs[path]++
	return true
}

func (c *Coordinator) release(path string) {
	c.refs[path]--
	if c.refs[path] > 0 {
		return
	}
	delete(c.refs, path)
	c.watcher.RemoveWatch(path)
}
