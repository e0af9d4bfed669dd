package shaderlive

import (
	"log/slog"

	"github.com/gogpu/shaderlive/backend"
	"github.com/gogpu/shaderlive/program"
	"github.com/gogpu/shaderlive/reload"
)

// Option configures a Workspace during Open.
//
// Example:
//
//	// Default backend selection, silent logging
//	ws, err := shaderlive.Open()
//
//	// CPU-only backend with a shared shader library
//	ws, err := shaderlive.Open(
//		shaderlive.WithBackendName(backend.BackendSoftware),
//		shaderlive.WithLibraryDir("shaders/lib"),
//	)
type Option func(*options)

type options struct {
	logger      *slog.Logger
	backendName string
	backend     backend.Backend
	libraryDir  string
	queueSize   int
	listeners   []program.Listener
}

func defaultOptions() options {
	return options{
		queueSize: reload.DefaultQueueSize,
	}
}

// WithLogger sets the logger shared by every component.
// By default a Workspace produces no log output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBackendName opens the backend registered under name instead of the
// best available one.
func WithBackendName(name string) Option {
	return func(o *options) {
		o.backendName = name
	}
}

// WithBackend uses an already opened backend. The Workspace takes ownership
// and closes it on Close.
func WithBackend(b backend.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithLibraryDir adds the *.wgsl files of dir to the fallback library.
// Files in dir take precedence over the embedded ones.
func WithLibraryDir(dir string) Option {
	return func(o *options) {
		o.libraryDir = dir
	}
}

// WithQueueSize sets the capacity of the reload queue.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithListener adds a listener for every build attempt.
func WithListener(l program.Listener) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, l)
	}
}
