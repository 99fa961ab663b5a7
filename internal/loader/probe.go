package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/unit"
)

// probeFactory validates in a short-lived worker goroutine that the
// spec's factory can construct an instance at all, bounded by a hard
// timeout and communicating over a reply channel. The throwaway instance
// is torn down immediately; the real instance is constructed afterwards
// in the host process.
//
// This is a loadability check, not isolation: unit code still runs in
// this process. Callers that need genuine containment must run the unit
// out of process.
func (l *Loader) probeFactory(ctx context.Context, factory unit.Factory, spec *unit.Spec) error {
	logger := ctxlog.FromContext(ctx).With("unit", spec.Name)

	timeout := l.opts.Timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}

	reply := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reply <- fmt.Errorf("factory panicked during probe: %v", r)
			}
		}()

		probe, err := factory(ctx, spec)
		if err != nil {
			reply <- err
			return
		}
		if probe == nil {
			reply <- errors.New("factory returned a nil unit during probe")
			return
		}
		// Best effort; the probe instance was never initialized.
		_ = probe.Unload(ctx)
		reply <- nil
	}()

	select {
	case err := <-reply:
		if err != nil {
			return &unit.InstantiationError{Unit: spec.Name, Cause: err}
		}
		logger.Debug("Sandbox probe passed.")
		return nil
	case <-time.After(timeout):
		return &unit.TimeoutError{Unit: spec.Name, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}
