package main

import (
	"fmt"
	"net/http"
	"sync/atomic"

	gochi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/junioryono/kiln"
	kilnchi "github.com/junioryono/kiln/chi"
	"github.com/junioryono/kiln/internal/config"
)

// newLogger builds the process logger for the configured environment.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch {
	case cfg.IsProduction():
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}

// buildContainer is the composition root.
func buildContainer(cfg *config.Config, logger *zap.Logger) (*kiln.Container, error) {
	opts := []kiln.Option{}
	if cfg.App.Debug {
		opts = append(opts, kiln.WithLogger(logger))
	}

	c := kiln.New(opts...)

	var requests atomic.Uint64

	steps := []func() error{
		func() error { return kiln.AddInstance(c, cfg) },
		func() error { return kiln.AddInstance(c, logger) },
		func() error { return kiln.AddInstance(c, newConnection(cfg.DB.DSN)) },
		func() error { return kiln.AddTransient[UserRepository, *connectionUserRepository](c) },
		func() error { return kiln.AddTransient[*UserService, *UserService](c) },
		func() error {
			return kiln.AddFactory(c, func() (RequestNumber, error) {
				return RequestNumber(requests.Add(1)), nil
			})
		},
		func() error { return kiln.AddTransientFunc[*UserController](c, NewUserController) },
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// newRouter wires the HTTP routes.
func newRouter(c *kiln.Container, logger *zap.Logger) http.Handler {
	r := gochi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(kilnchi.ContainerMiddleware(c, kilnchi.WithLogger(logger)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "container": c.ID(), "services": c.Len()})
	})

	r.Get("/debug/graph", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		if err := c.WriteDOT(w); err != nil {
			logger.Error("failed to render graph", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	})

	r.Get("/users/{id}", kilnchi.Handle((*UserController).GetByID, kilnchi.WithHandlerLogger(logger)))

	return r
}
