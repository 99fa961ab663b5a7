// Package dag builds the dependency graph between discovered unit specs,
// rejects cycles, computes a valid load order, and partitions that order
// into batches of units that are safe to load concurrently.
//
// The graph is deliberately a flat map of unique unit names to the names
// they depend on. There is no pointer graph: cycle detection is a
// three-color depth-first traversal over the map, and the topological
// order is materialized as an explicit slice so it can be tested
// independently of execution.
package dag
