package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/modgrid/internal/bus"
	"github.com/vk/modgrid/internal/ctxlog"
)

// UnloadBlockedError reports an unload refused because other loaded units
// still declare a dependency on the target.
type UnloadBlockedError struct {
	Unit       string
	Dependents []string
}

func (e *UnloadBlockedError) Error() string {
	return fmt.Sprintf("cannot unload unit '%s': still required by [%s]",
		e.Unit, strings.Join(e.Dependents, ", "))
}

// UnloadOptions controls dependency checking during unload.
type UnloadOptions struct {
	// Force unloads even when loaded dependents remain.
	Force bool
	// SkipDependencyCheck bypasses the dependent scan entirely. Used by
	// reload, which re-loads the unit immediately.
	SkipDependencyCheck bool
}

// Unload tears a unit down and releases its instance. Without Force, the
// call is refused with *UnloadBlockedError while other loaded units still
// depend on the target. Teardown errors are logged but do not keep the
// unit registered.
func (r *Registry) Unload(ctx context.Context, name string, opts UnloadOptions) error {
	logger := ctxlog.FromContext(ctx)

	r.mu.Lock()
	entry, ok := r.loaded[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unit '%s' is not loaded", name)
	}

	if !opts.SkipDependencyCheck {
		var dependents []string
		for otherName, other := range r.loaded {
			if otherName == name {
				continue
			}
			for _, dep := range other.Spec.Dependencies {
				if dep == name {
					dependents = append(dependents, otherName)
					break
				}
			}
		}
		if len(dependents) > 0 && !opts.Force {
			r.mu.Unlock()
			sort.Strings(dependents)
			return &UnloadBlockedError{Unit: name, Dependents: dependents}
		}
		if len(dependents) > 0 {
			logger.Warn("Force-unloading unit with loaded dependents.",
				"unit", name, "dependents", dependents)
		}
	}

	// Remove before teardown so concurrent loads observe the unit as gone.
	delete(r.loaded, name)
	st := r.statsLocked(name)
	st.Loaded = false
	r.mu.Unlock()

	if err := entry.Instance.Unload(ctx); err != nil {
		logger.Error("Unit teardown reported an error.", "unit", name, "error", err)
		r.mu.Lock()
		st.LastError = err.Error()
		r.mu.Unlock()
	}

	ev := bus.NewEvent(bus.UnitUnloaded, name)
	if err := r.notifier.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish unload event.", "unit", name, "error", err)
	}

	logger.Info("Unit unloaded.", "unit", name)
	return nil
}
