package watch

import (
	"context"
	"sync"
	"time"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/loader"
	"github.com/vk/modgrid/internal/registry"
)

// DefaultDebounce coalesces the burst of notifications a single file save
// typically produces.
const DefaultDebounce = 500 * time.Millisecond

// Reloader consumes watcher notifications and triggers state-preserving
// reloads for loaded units, debouncing per unit so overlapping reloads
// cannot happen for one file save.
type Reloader struct {
	watcher Watcher
	loader  *loader.Loader
	reg     *registry.Registry
	window  time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewReloader wires a reloader. A non-positive window selects the
// default debounce.
func NewReloader(w Watcher, l *loader.Loader, reg *registry.Registry, window time.Duration) *Reloader {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Reloader{
		watcher: w,
		loader:  l,
		reg:     reg,
		window:  window,
		timers:  make(map[string]*time.Timer),
	}
}

// Run consumes notifications until the context is canceled or the
// watcher closes.
func (r *Reloader) Run(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Hot reload active.", "debounce", r.window)

	defer r.stopTimers()

	for {
		select {
		case ev, ok := <-r.watcher.Events():
			if !ok {
				logger.Debug("Watcher closed, hot reload stopping.")
				return
			}
			if ev.Op == Remove {
				// Deleting a descriptor does not unload the unit; the next
				// directory load settles it.
				continue
			}
			entry, ok := r.reg.EntryBySource(ev.Path)
			if !ok {
				logger.Debug("Ignoring notification for unknown descriptor.", "path", ev.Path)
				continue
			}
			r.schedule(ctx, entry.Spec.Name)
		case <-ctx.Done():
			return
		}
	}
}

// schedule arms (or re-arms) the per-unit debounce timer. Rapid repeat
// notifications keep pushing the reload back until the file settles.
func (r *Reloader) schedule(ctx context.Context, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[name]; ok {
		t.Reset(r.window)
		return
	}
	r.timers[name] = time.AfterFunc(r.window, func() {
		r.mu.Lock()
		delete(r.timers, name)
		r.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		logger := ctxlog.FromContext(ctx)
		logger.Info("Descriptor changed, reloading unit.", "unit", name)
		if _, err := r.loader.Reload(ctx, name, loader.ReloadOptions{PreserveState: true}); err != nil {
			logger.Error("Hot reload failed.", "unit", name, "error", err)
		}
	})
}

func (r *Reloader) stopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
}
