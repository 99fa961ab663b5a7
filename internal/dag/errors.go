package dag

import (
	"fmt"
	"strings"
)

// CyclicDependencyError reports a dependency cycle. It is fatal for the
// whole directory load: no valid order exists, so nothing is instantiated.
type CyclicDependencyError struct {
	// Unit is the first unit found on the cycle.
	Unit string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected involving unit '%s'", e.Unit)
}

// UnresolvedBatchError reports units that could never be placed in a batch
// because they depend, directly or transitively, on units outside the
// discovered set. It is fatal only for the stuck units; everything already
// batched still loads.
type UnresolvedBatchError struct {
	Unit  string
	Stuck []string
}

func (e *UnresolvedBatchError) Error() string {
	return fmt.Sprintf("unit '%s' cannot be batched: unresolved dependencies among [%s]",
		e.Unit, strings.Join(e.Stuck, ", "))
}
