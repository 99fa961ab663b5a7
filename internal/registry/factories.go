package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/modgrid/internal/unit"
)

// RegisterFactory registers a named constructor for a unit type. Factories
// must be registered ahead of time; the loader resolves them by key
// lookup, never by runtime introspection. Registering the same key twice
// is a programmer error.
func (r *Registry) RegisterFactory(key string, factory unit.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("nil factory registered for key '%s'", key))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("unit factory with key '%s' already registered", key))
	}
	slog.Debug("Registering unit factory.", "key", key)
	r.factories[key] = factory
}

// Factory resolves a registered factory by key.
func (r *Registry) Factory(key string) (unit.Factory, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factories[key]
	return f, ok
}
