package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/vk/cookgrid/internal/scene"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	// metrics holds the app's own collectors; every scene gets a fresh
	// registry of its own.
	metrics     *prometheus.Registry
	httpMetrics *httpCollectors
	httpServer  *http.Server

	mu           sync.RWMutex
	scene        *scene.Scene
	sceneMetrics *prometheus.Registry
	status       status
}

// NewApp builds an App. Cook results go to outW, logs to logW. Without
// modules the core modules are registered. An invalid registry is a
// programmer error and panics.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = CoreModules()
	}
	reg.RegisterModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.Validate(ctx); err != nil {
		panic(fmt.Errorf("node type registry is invalid: %w", err))
	}
	logger.Debug("Registry validation passed.")

	metrics := prometheus.NewRegistry()
	return &App{
		outW:        outW,
		logger:      logger,
		config:      cfg,
		registry:    reg,
		metrics:     metrics,
		httpMetrics: newHTTPCollectors(metrics),
	}
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Scene returns the scene currently loaded, or nil before Run loads one.
func (a *App) Scene() *scene.Scene {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scene
}
