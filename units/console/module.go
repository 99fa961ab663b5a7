// Package console provides a built-in unit that echoes capability
// arguments to standard output. It doubles as the reference stateful unit:
// everything printed is remembered and survives hot reloads.
package console

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Console is the unit instance backing the "console" factory.
type Console struct {
	prefix string

	mu      sync.Mutex
	history []string
}

// New builds a console unit from its spec. The optional "prefix" config
// key is prepended to every printed line.
func New(_ context.Context, spec *unit.Spec) (unit.Unit, error) {
	return &Console{prefix: spec.ConfigString("prefix", "")}, nil
}

// Load implements unit.Unit.
func (c *Console) Load(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Console unit ready.", "prefix", c.prefix)
	return nil
}

// Unload implements unit.Unit.
func (c *Console) Unload(context.Context) error {
	return nil
}

// Capabilities implements unit.Unit.
func (c *Console) Capabilities() []unit.Capability {
	return []unit.Capability{
		{
			Name:        "print",
			Description: "Print the given arguments, sorted by key.",
			Handler:     c.print,
		},
		{
			Name:        "history",
			Description: "Return every line printed so far.",
			Handler:     c.historyOf,
		},
	}
}

// Describe implements unit.Describer.
func (c *Console) Describe() unit.Metadata {
	return unit.Metadata{Version: "1.0.0", Description: "echoes arguments to stdout"}
}

func (c *Console) print(_ context.Context, args map[string]any) (any, error) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		line := fmt.Sprintf("%s%s = %v", c.prefix, k, args[k])
		fmt.Println(line)
		c.history = append(c.history, line)
	}
	return len(keys), nil
}

func (c *Console) historyOf(context.Context, map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out, nil
}

// State implements unit.Stateful.
func (c *Console) State() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]string, len(c.history))
	copy(history, c.history)
	return map[string]any{"history": history}
}

// Restore implements unit.Stateful.
func (c *Console) Restore(state map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if history, ok := state["history"].([]string); ok {
		c.history = history
	}
}

// Register registers the factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFactory("console", New)
}
