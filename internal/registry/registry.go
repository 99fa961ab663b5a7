package registry

import (
	"context"
	"sync"
	"time"

	"github.com/vk/modgrid/internal/bus"
	"github.com/vk/modgrid/internal/unit"
)

// Module is the interface built-in unit packages implement to contribute
// their factories to a registry instance.
type Module interface {
	Register(r *Registry)
}

// ModuleFunc adapts a plain function to the Module interface.
type ModuleFunc func(r *Registry)

// Register implements Module.
func (f ModuleFunc) Register(r *Registry) { f(r) }

// Entry is one successfully loaded unit owned by the registry.
type Entry struct {
	Spec     *unit.Spec
	Instance unit.Unit
	Metadata *unit.Metadata
	LoadedAt time.Time
}

// Registry is the lifecycle registry for a single application instance.
type Registry struct {
	notifier bus.Notifier

	mu        sync.Mutex
	factories map[string]unit.Factory
	loaded    map[string]*Entry
	inflight  map[string]*Pending
	stats     map[string]*Stats
}

// New creates an empty registry publishing lifecycle events to the given
// notifier.
func New(notifier bus.Notifier) *Registry {
	if notifier == nil {
		notifier = bus.Noop{}
	}
	return &Registry{
		notifier:  notifier,
		factories: make(map[string]unit.Factory),
		loaded:    make(map[string]*Entry),
		inflight:  make(map[string]*Pending),
		stats:     make(map[string]*Stats),
	}
}

// Pending is the handle for a load that has begun but not yet resolved.
// Every concurrent caller for the same name waits on the same handle and
// observes the same result.
type Pending struct {
	name   string
	done   chan struct{}
	result *unit.LoadResult
}

// Wait blocks until the load resolves or the context is canceled.
func (p *Pending) Wait(ctx context.Context) *unit.LoadResult {
	select {
	case <-p.done:
		return p.result
	case <-ctx.Done():
		return unit.Failed(p.name, ctx.Err(), 0)
	}
}

// BeginLoad registers intent to load a unit. When a load for the name is
// already in flight, the existing handle is returned with started=false
// and the caller must Wait on it instead of loading again.
//
// The existence check and the insert happen in one critical section; two
// concurrent callers can never both observe "not in flight".
func (r *Registry) BeginLoad(name string) (p *Pending, started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.inflight[name]; ok {
		return existing, false
	}
	p = &Pending{name: name, done: make(chan struct{})}
	r.inflight[name] = p
	return p, true
}

// FinishLoad resolves the pending handle for a spec, removes it from the
// in-flight map regardless of outcome, and on success takes ownership of
// the instance.
func (r *Registry) FinishLoad(spec *unit.Spec, res *unit.LoadResult) {
	r.mu.Lock()
	p := r.inflight[spec.Name]
	delete(r.inflight, spec.Name)

	if res.Success && res.Instance != nil {
		if _, already := r.loaded[spec.Name]; !already {
			r.loaded[spec.Name] = &Entry{
				Spec:     spec,
				Instance: res.Instance,
				Metadata: res.Metadata,
				LoadedAt: time.Now(),
			}
		}
		st := r.statsLocked(spec.Name)
		st.Enabled = spec.Enabled
		st.Loaded = true
		st.LoadTime = res.LoadTime
		st.FunctionCount = len(res.Instance.Capabilities())
	} else {
		st := r.statsLocked(spec.Name)
		st.Enabled = spec.Enabled
		st.Loaded = false
		if res.Err != nil {
			st.LastError = res.Err.Error()
		}
	}
	r.mu.Unlock()

	if p != nil {
		p.result = res
		close(p.done)
	}
}

// IsLoaded reports whether a unit is currently loaded.
func (r *Registry) IsLoaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[name]
	return ok
}

// Entry returns the loaded entry for a unit, if any.
func (r *Registry) Entry(name string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.loaded[name]
	return e, ok
}

// LoadedNames lists the names of all currently loaded units.
func (r *Registry) LoadedNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.loaded))
	for name := range r.loaded {
		names = append(names, name)
	}
	return names
}

// EntryBySource finds the loaded unit whose spec was read from the given
// descriptor file. Used by the hot-reload path to map file events back to
// unit names.
func (r *Registry) EntryBySource(source string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.loaded {
		if e.Spec.Source == source {
			return e, true
		}
	}
	return nil, false
}

// Capabilities flattens the capabilities of every loaded unit, keyed by
// unit name, for the dispatcher collaborator.
func (r *Registry) Capabilities() map[string][]unit.Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]unit.Capability, len(r.loaded))
	for name, e := range r.loaded {
		out[name] = e.Instance.Capabilities()
	}
	return out
}

// statsLocked returns the stats record for a unit, creating it on first
// use. Caller must hold r.mu.
func (r *Registry) statsLocked(name string) *Stats {
	st, ok := r.stats[name]
	if !ok {
		st = &Stats{}
		r.stats[name] = st
	}
	return st
}
