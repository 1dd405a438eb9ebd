package kiln

import (
	"reflect"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxDepth bounds how deep a single resolution may recurse.
const DefaultMaxDepth = 256

// Option configures a Container.
type Option interface {
	apply(*containerOptions)
}

// containerOptions holds container configuration.
type containerOptions struct {
	logger   *zap.Logger
	maxDepth int

	// onRegistered is called after a successful registration.
	onRegistered func(Registration)

	// onResolved is called after a successful top-level resolution.
	onResolved func(serviceType reflect.Type, instance any, duration time.Duration)

	// onError is called when a top-level resolution fails.
	onError func(serviceType reflect.Type, err error)
}

// optionFunc adapts a function to Option.
type optionFunc func(*containerOptions)

func (f optionFunc) apply(opts *containerOptions) {
	f(opts)
}

func defaultContainerOptions() *containerOptions {
	return &containerOptions{
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
}

// WithLogger sets the logger used for registration and resolution events.
// The container logs at debug level only. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *containerOptions) {
		if logger == nil {
			logger = zap.NewNop()
		}
		opts.logger = logger
	})
}

// WithMaxDepth bounds the length of a resolution chain. Values below 1
// restore DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return optionFunc(func(opts *containerOptions) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}
		opts.maxDepth = depth
	})
}

// WithOnRegistered sets a callback invoked after each successful registration.
// It runs after the registry lock is released and may call into the container.
func WithOnRegistered(fn func(Registration)) Option {
	return optionFunc(func(opts *containerOptions) {
		opts.onRegistered = fn
	})
}

// WithOnResolved sets a callback invoked after each successful call to Resolve.
func WithOnResolved(fn func(serviceType reflect.Type, instance any, duration time.Duration)) Option {
	return optionFunc(func(opts *containerOptions) {
		opts.onResolved = fn
	})
}

// WithOnError sets a callback invoked when a call to Resolve fails.
// The error is still returned to the caller.
func WithOnError(fn func(serviceType reflect.Type, err error)) Option {
	return optionFunc(func(opts *containerOptions) {
		opts.onError = fn
	})
}
