package program

import (
	"log/slog"

	"github.com/gogpu/shaderlive/resolve"
)

// Option configures a Registry.
type Option func(*options)

type options struct {
	resolver  *resolve.Resolver
	listeners []Listener
	logger    *slog.Logger
}

// WithResolver sets the source resolver. Default: resolve.New().
func WithResolver(r *resolve.Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithListener adds a listener for build attempts. Listeners are called in
// the order they were added.
func WithListener(l Listener) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, l)
	}
}

// WithLogger sets the logger for build events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
