package shaderlive

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/shaderlive/backend"
	_ "github.com/gogpu/shaderlive/backend/wgpu" // registers the "wgpu" backend
	"github.com/gogpu/shaderlive/internal/logging"
	"github.com/gogpu/shaderlive/program"
	"github.com/gogpu/shaderlive/reload"
	"github.com/gogpu/shaderlive/resolve"
	"github.com/gogpu/shaderlive/watch"
)

// Workspace owns a backend and every program built on it.
type Workspace struct {
	logger      *slog.Logger
	backend     backend.Backend
	resolver    *resolve.Resolver
	registry    *program.Registry
	watcher     *watch.Service
	coordinator *reload.Coordinator
	closed      bool
}

// Open creates a Workspace and starts watching for changes.
func Open(opts ...Option) (*Workspace, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger)

	lib := resolve.DefaultLibrary()
	if o.libraryDir != "" {
		var err error
		if lib, err = lib.Overlay(o.libraryDir); err != nil {
			if o.backend != nil {
				o.backend.Close()
			}
			return nil, err
		}
	}

	b, err := openBackend(o, logger)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		logger:   logger,
		backend:  b,
		resolver: resolve.New(resolve.WithLibrary(lib), resolve.WithLogger(logger)),
		watcher:  watch.New(watch.WithLogger(logger)),
	}
	regOpts := []program.Option{
		program.WithResolver(ws.resolver),
		program.WithLogger(logger),
	}
	for _, l := range o.listeners {
		regOpts = append(regOpts, program.WithListener(l))
	}
	ws.registry = program.NewRegistry(b, regOpts...)
	ws.coordinator = reload.New(ws.registry, ws.watcher,
		reload.WithQueueSize(o.queueSize),
		reload.WithLogger(logger),
	)

	if err := ws.watcher.Start(); err != nil {
		// Programs still build; they just will not reload.
		logger.Warn("shaderlive: file watching disabled", "error", err)
	}

	logger.Info("shaderlive: workspace opened", "backend", b.Name())
	return ws, nil
}

func openBackend(o options, logger *slog.Logger) (backend.Backend, error) {
	switch {
	case o.backend != nil:
		return o.backend, nil
	case o.backendName != "":
		return backend.Open(o.backendName, logger)
	default:
		b, err := backend.Default(logger)
		if err != nil {
			return nil, fmt.Errorf("shaderlive: opening backend: %w", err)
		}
		return b, nil
	}
}

// Load builds a program from a vertex and a fragment file and watches every
// file the build read. Later edits are applied by Frame.
func (ws *Workspace) Load(name, vertexPath, fragmentPath string) program.CompiledProgram {
	p := ws.registry.Load(name, vertexPath, fragmentPath)
	if ws.watcher.Running() {
		ws.coordinator.Track(name)
	}
	return p
}

// Frame applies queued file changes and returns the number of programs it
// rebuilt. Call it once per rendered frame.
func (ws *Workspace) Frame() int {
	return ws.coordinator.Drain()
}

// Registry returns the program registry.
func (ws *Workspace) Registry() *program.Registry {
	return ws.registry
}

// Backend returns the backend programs are built on.
func (ws *Workspace) Backend() backend.Backend {
	return ws.backend
}

// Resolver returns the source resolver.
func (ws *Workspace) Resolver() *resolve.Resolver {
	return ws.resolver
}

// Watching reports whether file changes are observed.
func (ws *Workspace) Watching() bool {
	return ws.watcher.Running()
}

// Close stops watching and releases every program and the backend.
// The watch goroutine is joined before anything it calls into is released.
func (ws *Workspace) Close() {
	if ws.closed {
		return
	}
	ws.closed = true

	ws.coordinator.Close()
	ws.watcher.Stop()
	ws.registry.Close()
	ws.backend.Close()
	ws.logger.Info("shaderlive: workspace closed")
}
