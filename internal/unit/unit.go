package unit

import "context"

// Unit is the contract required of every loadable unit. Load performs the
// unit's own setup and must not block indefinitely; the loader bounds it
// with a timeout. Unload tears the unit down. Capabilities enumerates the
// functions the unit exposes so the dispatcher can route to them.
type Unit interface {
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
	Capabilities() []Capability
}

// Capability is a single named function a unit exposes to the rest of the
// system.
type Capability struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, args map[string]any) (any, error)
}

// Reloader is optionally implemented by units that want custom reload
// behavior instead of the default unload-then-load cycle.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Stateful is optionally implemented by units whose state should survive a
// reload. The loader captures State before unloading and calls Restore on
// the freshly loaded instance.
type Stateful interface {
	State() map[string]any
	Restore(state map[string]any)
}

// Describer is optionally implemented by units that expose metadata.
type Describer interface {
	Describe() Metadata
}

// Metadata describes a unit for observability purposes.
type Metadata struct {
	Version     string
	Description string
	Author      string
}

// Factory constructs a unit instance from its spec. Factories are
// registered ahead of time under a well-known key; the loader resolves
// them by name lookup, never by runtime introspection.
type Factory func(ctx context.Context, spec *Spec) (Unit, error)
