package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/modgrid/internal/bus"
	"github.com/vk/modgrid/internal/loader"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	notifier bus.Notifier
	registry *registry.Registry
	loader   *loader.Loader

	closers []io.Closer
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, notifier, registry
// and loader. Passing no units registers the compiled-in core set.
func NewApp(outW io.Writer, cfg *Config, units ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	app := &App{outW: outW, logger: logger, config: cfg}

	// Lifecycle events stay in-process unless a Redis stream is configured.
	var notifier bus.Notifier = bus.NewMemory()
	if cfg.RedisURL != "" {
		rn, err := bus.NewRedis(cfg.RedisURL, cfg.RedisStream)
		if err != nil {
			return nil, fmt.Errorf("failed to configure redis notifier: %w", err)
		}
		notifier = rn
		app.closers = append(app.closers, rn)
		logger.Debug("Lifecycle events will be published to Redis.", "stream", cfg.RedisStream)
	}
	app.notifier = notifier

	reg := registry.New(notifier)
	if len(units) == 0 {
		units = coreUnits
	}
	for _, u := range units {
		u.Register(reg)
	}
	logger.Debug("All unit factories registered.", "count", len(units))

	app.registry = reg
	app.loader = loader.New(reg, notifier, unit.Options{
		Parallel:       true,
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.Timeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryDelay:     cfg.RetryDelay,
		Sandbox:        cfg.Sandbox,
	})

	return app, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Loader returns the application's loader. This is primarily for testing.
func (a *App) Loader() *loader.Loader {
	return a.loader
}

// Close releases external resources held by the app.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
