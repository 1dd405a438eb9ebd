// Package chi provides kiln integration for the Chi router.
//
// This package provides middleware that attaches a container to each request
// and type-safe handler wrappers for resolving controllers.
//
// Example usage:
//
//	c := kiln.New()
//	_ = kiln.AddTransientFunc[*UserController](c, NewUserController)
//
//	r := chi.NewRouter()
//	r.Use(kilnchi.ContainerMiddleware(c))
//
//	r.Get("/users/{id}", kilnchi.Handle((*UserController).GetByID))
package chi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/junioryono/kiln"
)

// Config holds the configuration for the container middleware.
type Config struct {
	// Logger receives middleware errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// ErrorHandler is called when a middleware hook fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Middlewares are functions that run after the container is attached.
	// They can be used to validate the container or inspect the request.
	Middlewares []func(*kiln.Container, *http.Request) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithLogger sets the logger used by the default error handler.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithErrorHandler sets the error handler for middleware hook failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the container is attached.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*kiln.Container, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: zap.NewNop(),
	}
}

func (cfg *Config) fill() {
	if cfg.ErrorHandler == nil {
		logger := cfg.Logger
		cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("container middleware failed", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// ContainerMiddleware creates a Chi middleware that attaches c to every
// request context, where it can be retrieved using kiln.FromContext.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(kilnchi.ContainerMiddleware(c))
func ContainerMiddleware(c *kiln.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	cfg.fill()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(kiln.WithContainer(r.Context(), c))

			for _, mw := range cfg.Middlewares {
				if err := mw(c, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// Logger receives handler errors. Defaults to a no-op logger.
	Logger *zap.Logger

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContainerErrorHandler is called when no container is in the request context.
	ContainerErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithHandlerLogger sets the logger used by the default handlers.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing container.
func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		Logger: zap.NewNop(),
	}
}

// fill installs the default handlers for any left unset. They log through
// the configured logger and respond with 500 Internal Server Error.
func (cfg *HandlerConfig) fill() {
	logger := cfg.Logger

	if cfg.PanicHandler == nil {
		cfg.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
			logger.Error("panic in handler", zap.Any("panic", v), zap.String("path", r.URL.Path))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to get container from context", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to resolve controller", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// Handle wraps a controller method for type-safe resolution from the
// container attached to the request context. T is resolved on every request,
// so a transient controller is constructed per request.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	r.Get("/users/{id}", kilnchi.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.fill()

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, err := kiln.FromContext(r.Context())
		if err != nil {
			cfg.ContainerErrorHandler(w, r, err)
			return
		}

		controller, err := kiln.Resolve[T](c)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
