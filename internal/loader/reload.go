package loader

import (
	"context"
	"fmt"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// ReloadOptions controls state handling across a reload.
type ReloadOptions struct {
	// PreserveState captures the unit's exposed state before unloading and
	// restores it onto the fresh instance.
	PreserveState bool
}

// Reload replaces a loaded unit's instance in place. The registry key is
// preserved; LoadTime and LastReload are refreshed and the fresh
// instance's capabilities replace the old ones.
//
// The returned LoadResult reports the reload outcome; the error return is
// reserved for units that were not loaded to begin with or could not be
// unloaded.
func (l *Loader) Reload(ctx context.Context, name string, opts ReloadOptions) (*unit.LoadResult, error) {
	logger := ctxlog.FromContext(ctx).With("unit", name)

	entry, ok := l.reg.Entry(name)
	if !ok {
		return nil, fmt.Errorf("cannot reload unit '%s': not loaded", name)
	}

	// Units implementing their own Reload short-circuit the unload/load
	// cycle entirely.
	if reloader, ok := entry.Instance.(unit.Reloader); ok {
		logger.Debug("Unit implements self-reload.")
		if err := reloader.Reload(ctx); err != nil {
			return unit.Failed(name, err, 0), nil
		}
		l.reg.MarkReloaded(name, 0)
		return unit.Succeeded(name, entry.Instance, 0), nil
	}

	var state map[string]any
	if opts.PreserveState {
		if s, ok := entry.Instance.(unit.Stateful); ok {
			state = s.State()
			logger.Debug("Captured unit state for reload.", "keys", len(state))
		}
	}

	// The dependency check is skipped: the unit comes right back.
	if err := l.reg.Unload(ctx, name, registry.UnloadOptions{SkipDependencyCheck: true}); err != nil {
		return nil, fmt.Errorf("reload of unit '%s' failed during unload: %w", name, err)
	}

	res := l.Load(ctx, entry.Spec)
	if !res.Success {
		logger.Error("Reload failed; unit is no longer loaded.", "error", res.Err)
		return res, nil
	}

	if state != nil {
		if s, ok := res.Instance.(unit.Stateful); ok {
			s.Restore(state)
			logger.Debug("Restored unit state after reload.")
		}
	}

	l.reg.MarkReloaded(name, res.LoadTime)
	logger.Info("Unit reloaded.", "load_time", res.LoadTime)
	return res, nil
}
