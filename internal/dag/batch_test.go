package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatches(t *testing.T) {
	t.Run("linear chain yields one batch per unit", func(t *testing.T) {
		// a depends on b, b depends on c.
		edges := Edges{"a": {"b"}, "b": {"c"}, "c": nil}
		batches, stuck := Batches(edges)

		require.Empty(t, stuck)
		require.Equal(t, [][]string{{"c"}, {"b"}, {"a"}}, batches)
	})

	t.Run("independent units share the first batch", func(t *testing.T) {
		edges := Edges{"http": nil, "console": nil, "mock": {"http"}}
		batches, stuck := Batches(edges)

		require.Empty(t, stuck)
		require.Len(t, batches, 2)
		assert.ElementsMatch(t, []string{"console", "http"}, batches[0])
		assert.Equal(t, []string{"mock"}, batches[1])
	})

	t.Run("diamond dependencies batch by depth", func(t *testing.T) {
		edges := Edges{
			"top":   {"left", "right"},
			"left":  {"base"},
			"right": {"base"},
			"base":  nil,
		}
		batches, stuck := Batches(edges)

		require.Empty(t, stuck)
		require.Equal(t, [][]string{{"base"}, {"left", "right"}, {"top"}}, batches)
	})

	t.Run("dependency outside the discovered set leaves the unit stuck", func(t *testing.T) {
		edges := Edges{"a": {"missing"}, "b": nil}
		batches, stuck := Batches(edges)

		require.Equal(t, [][]string{{"b"}}, batches)
		assert.Equal(t, []string{"a"}, stuck)
	})

	t.Run("units behind a stuck unit are stuck transitively", func(t *testing.T) {
		edges := Edges{"a": {"missing"}, "b": {"a"}, "c": nil}
		batches, stuck := Batches(edges)

		require.Equal(t, [][]string{{"c"}}, batches)
		assert.Equal(t, []string{"a", "b"}, stuck)
	})

	t.Run("empty edge map yields no batches", func(t *testing.T) {
		batches, stuck := Batches(Edges{})
		assert.Empty(t, batches)
		assert.Empty(t, stuck)
	})
}
