package unit

import "time"

// Spec is the discovered, static description of a unit before it is
// instantiated. Specs are immutable after the scanner produces them and
// are identified uniquely by Name within one directory scan.
type Spec struct {
	// Name is the unique identifier for the unit.
	Name string

	// Path selects the factory the loader instantiates the unit with.
	// When empty, Name is used as the factory key.
	Path string

	// Config is the unit's opaque configuration, passed through to the
	// factory untouched.
	Config map[string]any

	// Priority orders specs among peers; higher loads earlier.
	Priority int

	// Dependencies lists the names of units that must be loaded before
	// this one.
	Dependencies []string

	// Enabled excludes the unit from loading entirely when false.
	Enabled bool

	// Async marks units whose initialization may be overlapped with
	// batch-mates.
	Async bool

	// Timeout overrides the loader's initialization timeout when non-zero.
	Timeout time.Duration

	// Source is the descriptor file the spec was read from. Used by the
	// hot-reload path to map file events back to unit names.
	Source string
}

// FactoryKey returns the key the loader resolves this spec's factory by.
func (s *Spec) FactoryKey() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Name
}
