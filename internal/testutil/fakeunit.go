// Package testutil provides controllable fake units and a temp-dir
// harness for integration tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// Counters observes how often a fake unit's lifecycle points were hit.
type Counters struct {
	Constructed atomic.Int32
	Loaded      atomic.Int32
	Unloaded    atomic.Int32
}

// FakeConfig controls a fake unit's behavior.
type FakeConfig struct {
	// LoadDelay makes initialization take this long (context-aware).
	LoadDelay time.Duration
	// FailLoadAttempts fails the first N initialization attempts.
	FailLoadAttempts int
	// FailLoadAlways fails every initialization attempt.
	FailLoadAlways bool
	// PanicOnConstruct makes the factory panic.
	PanicOnConstruct bool
	// PanicOnLoad makes initialization panic.
	PanicOnLoad bool
	// Capabilities names the capabilities the fake exposes.
	Capabilities []string
	// Metadata is returned from Describe when non-nil.
	Metadata *unit.Metadata
}

// ErrFakeLoad is the error fake units fail initialization with.
var ErrFakeLoad = errors.New("fake unit load failure")

// FakeUnit is a controllable in-memory unit. It implements Stateful so
// reload preservation can be exercised.
type FakeUnit struct {
	Name     string
	cfg      FakeConfig
	counters *Counters
	attempts atomic.Int32

	mu    sync.Mutex
	state map[string]any
}

func (f *FakeUnit) Load(ctx context.Context) error {
	if f.cfg.PanicOnLoad {
		panic("fake unit load panic")
	}
	if f.cfg.LoadDelay > 0 {
		select {
		case <-time.After(f.cfg.LoadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	attempt := f.attempts.Add(1)
	if f.cfg.FailLoadAlways || int(attempt) <= f.cfg.FailLoadAttempts {
		return ErrFakeLoad
	}
	if f.counters != nil {
		f.counters.Loaded.Add(1)
	}
	return nil
}

func (f *FakeUnit) Unload(context.Context) error {
	if f.counters != nil {
		f.counters.Unloaded.Add(1)
	}
	return nil
}

func (f *FakeUnit) Capabilities() []unit.Capability {
	caps := make([]unit.Capability, 0, len(f.cfg.Capabilities))
	for _, name := range f.cfg.Capabilities {
		caps = append(caps, unit.Capability{
			Name: name,
			Handler: func(context.Context, map[string]any) (any, error) {
				return nil, nil
			},
		})
	}
	return caps
}

func (f *FakeUnit) Describe() unit.Metadata {
	if f.cfg.Metadata != nil {
		return *f.cfg.Metadata
	}
	return unit.Metadata{Version: "0.0.0-test", Description: "fake unit"}
}

// State implements unit.Stateful.
func (f *FakeUnit) State() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]any, len(f.state))
	for k, v := range f.state {
		out[k] = v
	}
	return out
}

// Restore implements unit.Stateful.
func (f *FakeUnit) Restore(state map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

// Put stores a state entry, for tests asserting state preservation.
func (f *FakeUnit) Put(key string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		f.state = make(map[string]any)
	}
	f.state[key] = value
}

// Get reads a state entry.
func (f *FakeUnit) Get(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.state[key]
	return v, ok
}

// fakeFactory builds a counting factory for the given behavior.
func fakeFactory(cfg FakeConfig, counters *Counters) unit.Factory {
	return func(_ context.Context, spec *unit.Spec) (unit.Unit, error) {
		if cfg.PanicOnConstruct {
			panic("fake unit construct panic")
		}
		counters.Constructed.Add(1)
		return &FakeUnit{Name: spec.Name, cfg: cfg, counters: counters}, nil
	}
}

// RegisterFake registers a counting fake-unit factory under the given key
// and returns its counters.
func RegisterFake(r *registry.Registry, key string, cfg FakeConfig) *Counters {
	counters := &Counters{}
	r.RegisterFactory(key, fakeFactory(cfg, counters))
	return counters
}

// FakeModule is a registry.Module wrapper around a fake factory, for tests
// that boot a whole app with injected units.
type FakeModule struct {
	Key      string
	Cfg      FakeConfig
	Counters *Counters
}

// NewFakeModule creates a module registering a fake factory under key.
func NewFakeModule(key string, cfg FakeConfig) *FakeModule {
	return &FakeModule{Key: key, Cfg: cfg, Counters: &Counters{}}
}

// Register implements registry.Module.
func (m *FakeModule) Register(r *registry.Registry) {
	r.RegisterFactory(m.Key, fakeFactory(m.Cfg, m.Counters))
}
