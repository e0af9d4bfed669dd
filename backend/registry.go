package backend

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/shaderlive/internal/logging"
)

// Backend name constants.
const (
	// BackendWGPU is the name of the gogpu/wgpu HAL backend.
	BackendWGPU = "wgpu"
	// BackendSoftware is the name of the CPU-only backend.
	BackendSoftware = "software"
)

// Factory opens a backend instance.
type Factory func(logger *slog.Logger) (Backend, error)

// factories holds registered backends.
// Priority order for backend selection (first available wins).
var factories = gpucontext.NewRegistry[Factory](
	gpucontext.WithPriority(BackendWGPU, BackendSoftware),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	factories.Register(name, func() Factory { return factory })
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	factories.Unregister(name)
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return factories.Has(name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	names := factories.Available()
	sort.Strings(names)
	return names
}

// DefaultName returns the name Default would open, or "" if no backend is
// registered.
func DefaultName() string {
	return factories.BestName()
}

// Open opens the backend registered under name.
func Open(name string, logger *slog.Logger) (Backend, error) {
	factory := factories.Get(name)
	if factory == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	b, err := factory(logging.OrNop(logger))
	if err != nil {
		return nil, fmt.Errorf("backend: opening %q: %w", name, err)
	}
	return b, nil
}

// Default opens the best available backend based on priority.
// Priority order: wgpu > software. If the preferred backend fails to open,
// the software backend is used when registered.
func Default(logger *slog.Logger) (Backend, error) {
	logger = logging.OrNop(logger)
	name := DefaultName()
	if name == "" {
		return nil, ErrBackendNotAvailable
	}
	b, err := Open(name, logger)
	if err == nil || name == BackendSoftware || !IsRegistered(BackendSoftware) {
		return b, err
	}
	logger.Warn("backend: falling back to software", "backend", name, "error", err)
	return Open(BackendSoftware, logger)
}
