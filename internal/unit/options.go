package unit

import "time"

// Options controls how the loader brings units online.
type Options struct {
	// Parallel enables concurrent loading within a batch.
	Parallel bool

	// MaxConcurrency bounds how many units of one batch load at once.
	MaxConcurrency int

	// Timeout bounds each unit's own initialization call. A spec-level
	// timeout takes precedence when set.
	Timeout time.Duration

	// RetryAttempts is the total number of initialization attempts.
	RetryAttempts int

	// RetryDelay is the pause between initialization attempts.
	RetryDelay time.Duration

	// Sandbox requests a best-effort validation of the unit's factory in a
	// short-lived worker before the real instance is constructed.
	Sandbox bool
}

// DefaultOptions returns the documented option defaults.
func DefaultOptions() Options {
	return Options{
		Parallel:       true,
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Second,
		Sandbox:        false,
	}
}

// Normalize fills in zero values with the defaults so partially populated
// options behave predictably.
func (o Options) Normalize() Options {
	def := DefaultOptions()
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = def.MaxConcurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = def.RetryAttempts
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = def.RetryDelay
	}
	return o
}
