package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/modgrid/internal/bus"
	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/registry"
	"github.com/vk/modgrid/internal/unit"
)

// Loader loads units into a lifecycle registry.
type Loader struct {
	reg      *registry.Registry
	notifier bus.Notifier
	opts     unit.Options
}

// New creates a loader. Zero option fields fall back to the documented
// defaults.
func New(reg *registry.Registry, notifier bus.Notifier, opts unit.Options) *Loader {
	if notifier == nil {
		notifier = bus.Noop{}
	}
	return &Loader{reg: reg, notifier: notifier, opts: opts.Normalize()}
}

// Options returns the loader's effective options.
func (l *Loader) Options() unit.Options { return l.opts }

// Load performs one load attempt for a spec and always returns a resolved
// LoadResult.
//
// Concurrent calls for the same name share a single in-flight load: the
// first caller runs the pipeline, everyone else waits on the same pending
// handle and receives the identical result.
func (l *Loader) Load(ctx context.Context, spec *unit.Spec) *unit.LoadResult {
	logger := ctxlog.FromContext(ctx).With("unit", spec.Name)

	pending, started := l.reg.BeginLoad(spec.Name)
	if !started {
		logger.Debug("Load already in flight, joining pending result.")
		return pending.Wait(ctx)
	}

	alreadyLoaded := l.reg.IsLoaded(spec.Name)
	res := l.runPipeline(ctx, spec)
	l.reg.FinishLoad(spec, res)

	// The idempotent fast path re-returns an existing instance; no new
	// lifecycle happened, so no event is emitted for it.
	if !alreadyLoaded {
		l.publish(ctx, res)
	}

	if res.Success {
		logger.Info("Unit loaded.", "load_time", res.LoadTime)
	} else {
		logger.Error("Unit failed to load.", "error", res.Err)
	}
	return res
}

// runPipeline executes the ordered load steps for one spec.
func (l *Loader) runPipeline(ctx context.Context, spec *unit.Spec) *unit.LoadResult {
	start := time.Now()

	// Already loaded: idempotent success with a zero load time.
	if entry, ok := l.reg.Entry(spec.Name); ok {
		return &unit.LoadResult{
			Name:     spec.Name,
			Success:  true,
			Instance: entry.Instance,
			Metadata: entry.Metadata,
		}
	}

	// Every declared dependency must already be loaded. A failure here
	// affects only this unit, never its batch-mates.
	for _, dep := range spec.Dependencies {
		if !l.reg.IsLoaded(dep) {
			err := &unit.MissingDependencyError{Unit: spec.Name, Dependency: dep}
			return unit.Failed(spec.Name, err, time.Since(start))
		}
	}

	factory, ok := l.reg.Factory(spec.FactoryKey())
	if !ok {
		err := &unit.InstantiationError{
			Unit:  spec.Name,
			Cause: fmt.Errorf("no factory registered for key '%s'", spec.FactoryKey()),
		}
		return unit.Failed(spec.Name, err, time.Since(start))
	}

	if l.opts.Sandbox {
		if err := l.probeFactory(ctx, factory, spec); err != nil {
			return unit.Failed(spec.Name, err, time.Since(start))
		}
	}

	instance, err := construct(ctx, factory, spec)
	if err != nil {
		return unit.Failed(spec.Name, &unit.InstantiationError{Unit: spec.Name, Cause: err}, time.Since(start))
	}

	if err := l.initialize(ctx, instance, spec); err != nil {
		// The partially constructed instance is discarded.
		return unit.Failed(spec.Name, err, time.Since(start))
	}

	return unit.Succeeded(spec.Name, instance, time.Since(start))
}

// construct calls the factory, converting panics into errors so unit code
// cannot take down the loader.
func construct(ctx context.Context, factory unit.Factory, spec *unit.Spec) (u unit.Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()

	u, err = factory(ctx, spec)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.New("factory returned a nil unit")
	}
	return u, nil
}

// initialize invokes the unit's own Load entry point under the effective
// timeout, retrying failed attempts up to the configured count.
func (l *Loader) initialize(ctx context.Context, u unit.Unit, spec *unit.Spec) error {
	logger := ctxlog.FromContext(ctx).With("unit", spec.Name)

	timeout := l.opts.Timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}

	var lastErr error
	for attempt := 1; attempt <= l.opts.RetryAttempts; attempt++ {
		lastErr = l.initOnce(ctx, u, spec.Name, timeout)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt < l.opts.RetryAttempts {
			logger.Warn("Unit initialization failed, retrying.",
				"attempt", attempt, "error", lastErr, "retry_delay", l.opts.RetryDelay)
			select {
			case <-time.After(l.opts.RetryDelay):
			case <-ctx.Done():
				return lastErr
			}
		}
	}
	return lastErr
}

// initOnce runs a single initialization attempt. The unit's Load call runs
// in its own goroutine so a unit that ignores its context still cannot
// stall the batch past the timeout.
func (l *Loader) initOnce(ctx context.Context, u unit.Unit, name string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callLoad(tctx, u)
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return &unit.TimeoutError{Unit: name, Timeout: timeout}
		}
		if err != nil {
			return &unit.InstantiationError{Unit: name, Cause: err}
		}
		return nil
	case <-tctx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &unit.TimeoutError{Unit: name, Timeout: timeout}
	}
}

// callLoad invokes the unit's initialization entry point, recovering
// panics into errors.
func callLoad(ctx context.Context, u unit.Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit initialization panicked: %v", r)
		}
	}()
	return u.Load(ctx)
}

// publish emits the lifecycle event for a resolved load attempt.
func (l *Loader) publish(ctx context.Context, res *unit.LoadResult) {
	evType := bus.UnitLoaded
	if !res.Success {
		evType = bus.UnitLoadFailed
	}
	ev := bus.NewEvent(evType, res.Name)
	ev.LoadTime = res.LoadTime
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	if err := l.notifier.Publish(ctx, ev); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish lifecycle event.",
			"unit", res.Name, "type", evType, "error", err)
	}
}
