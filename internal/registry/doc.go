// Package registry owns the runtime state of the unit system: the factory
// table units are instantiated from, the map of currently loaded
// instances, the in-flight load map that de-duplicates concurrent load
// requests, and per-unit lifecycle statistics.
//
// The registry is the only mutator of this state. Callers interact with
// it through explicit methods; there are no package-level singletons.
package registry
