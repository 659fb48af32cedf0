package partition

import (
	"testing"

	"github.com/notargets/meshpart/meshtree"
	"github.com/stretchr/testify/require"
)

func TestBaseExecuteSplitsToTarget(t *testing.T) {
	b := &Base{
		Selections: []Selection{ContiguousSelection{Topology: "mesh", Start: 0, End: 100}},
		Target:     4,
	}
	chunks, err := b.Execute(func(s Selection) (Chunk, error) {
		return NewChunk(meshtree.New("mesh"), true, uint64(s.Length()), unsetDestination, unsetDestination)
	})
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	total := uint64(0)
	for _, c := range chunks {
		total += c.NumElements
	}
	require.Equal(t, uint64(100), total)
}

func TestExecuteFromTreeUsesExtractSubtree(t *testing.T) {
	source := meshtree.New("mesh")
	source.Child("topologies").Child("mesh").Child("type").SetString("unstructured")
	source.Child("coordsets").Child("coords").Child("type").SetString("explicit")

	b := &Base{
		Selections: []Selection{ContiguousSelection{Topology: "mesh", Start: 0, End: 40}},
		Target:     2,
	}
	chunks, err := b.ExecuteFromTree(source)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		require.False(t, c.Owned, "a subtree view sliced from a still-live source is non-owning")
		require.Equal(t, uint64(20), c.NumElements)
		require.True(t, c.Tree.HasChild("topologies"), "the view shares the source's children")
	}
}

func TestBaseLargestSelectionIndexTieBreaksLowest(t *testing.T) {
	b := &Base{Selections: []Selection{
		ContiguousSelection{Start: 0, End: 5},
		ContiguousSelection{Start: 0, End: 9},
		ContiguousSelection{Start: 0, End: 9},
	}}
	require.Equal(t, 1, b.LargestSelectionIndex())
}
