package unit

import (
	"fmt"
	"time"
)

// MissingDependencyError reports that a unit declared a dependency that is
// not currently loaded. It fails only the declaring unit; batch-mates are
// unaffected.
type MissingDependencyError struct {
	Unit       string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("unit '%s' requires dependency '%s' which is not loaded", e.Unit, e.Dependency)
}

// TimeoutError reports that a unit's initialization exceeded the
// configured timeout. The partially constructed instance is discarded.
type TimeoutError struct {
	Unit    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("unit '%s' initialization timed out after %s", e.Unit, e.Timeout)
}

// InstantiationError reports that a unit's factory failed or panicked.
type InstantiationError struct {
	Unit  string
	Cause error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("unit '%s' failed to instantiate: %v", e.Unit, e.Cause)
}

func (e *InstantiationError) Unwrap() error { return e.Cause }
