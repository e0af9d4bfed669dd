package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/shaderlive/internal/logging"
)

// ErrNotRunning is returned by AddWatch before Start or after Stop.
var ErrNotRunning = errors.New("watch: service not running")

// Callback receives the absolute path of a changed file.
type Callback func(path string)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for watch errors and lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(l)
	}
}

// Service delivers file change notifications to registered callbacks.
// All methods are safe for concurrent use.
type Service struct {
	logger *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	files   map[string]Callback
	dirs    map[string]int

	wg sync.WaitGroup
}

// New creates a stopped service.
func New(opts ...Option) *Service {
	s := &Service{
		logger: logging.Nop(),
		files:  make(map[string]Callback),
		dirs:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the OS watcher and the notification goroutine.
// Starting a running service does nothing.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: starting: %w", err)
	}
	s.watcher = w
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.loop(w, s.done)

	s.logger.Debug("watch: started")
	return nil
}

// Stop closes the OS watcher, waits for the notification goroutine to exit
// and forgets every registration. Stopping a stopped service does nothing.
//
// Stop waits for a running callback to return. Unblock anything a callback
// may wait on first; a reload.Coordinator must be closed before Stop.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.watcher == nil {
		s.mu.Unlock()
		return
	}
	close(s.done)
	if err := s.watcher.Close(); err != nil {
		s.logger.Warn("watch: closing watcher", "error", err)
	}
	s.watcher = nil
	clear(s.files)
	clear(s.dirs)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug("watch: stopped")
}

// Running reports whether the service is started.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watcher != nil
}

// AddWatch calls cb whenever path is written or created. Registering a
// path again replaces its callback.
func (s *Service) AddWatch(path string, cb Callback) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		return ErrNotRunning
	}
	if _, ok := s.files[abs]; ok {
		s.files[abs] = cb
		return nil
	}

	dir := filepath.Dir(abs)
	if s.dirs[dir] == 0 {
		if err := s.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch: adding %s: %w", abs, err)
		}
	}
	s.dirs[dir]++
	s.files[abs] = cb
	return nil
}

// RemoveWatch drops the registration for path, if any.
func (s *Service) RemoveWatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[abs]; !ok {
		return
	}
	delete(s.files, abs)

	dir := filepath.Dir(abs)
	s.dirs[dir]--
	if s.dirs[dir] > 0 {
		return
	}
	delete(s.dirs, dir)
	if err := s.watcher.Remove(dir); err != nil {
		s.logger.Debug("watch: removing directory", "dir", dir, "error", err)
	}
}

// Watches returns the sorted registered paths.
func (s *Service) Watches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *Service) loop(w *fsnotify.Watcher, done <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-done:
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.dispatch(filepath.Clean(event.Name), done)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch: watcher error", "error", err)
		}
	}
}

// dispatch looks up the callback under the lock and runs it outside.
func (s *Service) dispatch(path string, done <-chan struct{}) {
	s.mu.Lock()
	cb := s.files[path]
	s.mu.Unlock()

	select {
	case <-done:
		return
	default:
	}
	if cb != nil {
		s.logger.Debug("watch: file changed", "path", path)
		cb(path)
	}
}
