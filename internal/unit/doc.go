// Package unit defines the contracts shared between the scanner, the
// dependency graph, the loader, and the lifecycle registry: the static
// description of a discoverable unit (Spec), the runtime contract every
// loadable unit implements (Unit), the outcome of a load attempt
// (LoadResult), and the per-unit error kinds.
package unit
