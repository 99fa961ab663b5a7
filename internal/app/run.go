package app

import (
	"context"
	"fmt"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/watch"
)

// Run executes the main application logic: load every unit under the
// configured directory, then optionally keep watching descriptors for hot
// reload until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	summary, err := a.loader.LoadDirectory(ctx, a.config.UnitsPath)
	if err != nil {
		return fmt.Errorf("failed to load units: %w", err)
	}

	for _, w := range summary.Warnings {
		a.logger.Warn("Descriptor skipped during discovery.", "file", w.File, "error", w.Err)
	}
	for _, r := range summary.Results {
		if !r.Success {
			a.logger.Error("Unit failed to load.", "unit", r.Name, "error", r.Err)
		}
	}
	a.logger.Info("🚀 Units online.",
		"loaded", summary.SuccessCount,
		"failed", summary.FailureCount,
		"skipped", len(summary.Skipped))

	if !a.config.Watch {
		a.logger.Debug("App.Run method finished.")
		return nil
	}

	watcher, err := watch.NewFSWatcher(a.config.UnitsPath)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", a.config.UnitsPath, err)
	}
	defer watcher.Close()

	// Blocks until the context is canceled.
	reloader := watch.NewReloader(watcher, a.loader, a.registry, a.config.DebounceWindow)
	reloader.Run(ctx)

	a.logger.Debug("App.Run method finished.")
	return nil
}
