package dag

import (
	"sort"

	"github.com/vk/modgrid/internal/unit"
)

// Edges maps each unit name to the names of the units it depends on.
// Units without dependencies are present with an empty list, so the edge
// map always contains every discovered unit exactly once.
type Edges map[string][]string

// BuildEdges derives the dependency edge map from the discovered specs.
func BuildEdges(specs []*unit.Spec) Edges {
	edges := make(Edges, len(specs))
	for _, s := range specs {
		deps := make([]string, len(s.Dependencies))
		copy(deps, s.Dependencies)
		edges[s.Name] = deps
	}
	return edges
}

// color is the visit state of a node during the depth-first traversal.
type color uint8

const (
	unvisited color = iota
	inProgress
	done
)

// Order computes a topological ordering of the edge map: every unit
// appears strictly after all of its dependencies. The order is not unique;
// ties are broken by name so the result is deterministic and testable.
//
// A cycle returns a *CyclicDependencyError naming the offending unit.
// Dependencies on names outside the edge map are ignored here; the batch
// scheduler reports them as unresolved.
func Order(edges Edges) ([]string, error) {
	names := make([]string, 0, len(edges))
	for name := range edges {
		names = append(names, name)
	}
	sort.Strings(names)

	colors := make(map[string]color, len(edges))
	order := make([]string, 0, len(edges))

	var visit func(name string) error
	visit = func(name string) error {
		switch colors[name] {
		case done:
			return nil
		case inProgress:
			// Reaching a node already on the descent stack means the
			// dependency chain loops back on itself.
			return &CyclicDependencyError{Unit: name}
		}

		colors[name] = inProgress
		for _, dep := range edges[name] {
			if _, known := edges[dep]; !known {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		colors[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
