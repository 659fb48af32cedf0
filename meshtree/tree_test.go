package meshtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchAndPath(t *testing.T) {
	root := New("")
	root.Child("coordsets").Child("coords").Child("values").Child("x").SetFloat64Array([]float64{1, 2, 3})

	n, ok := root.Fetch("coordsets/coords/values/x")
	require.True(t, ok)
	vals, ok := n.AsFloat64Array()
	require.True(t, ok)
	require.Equal(t, []float64{1, 2, 3}, vals)

	_, ok = root.Fetch("coordsets/coords/values/z")
	require.False(t, ok)
}

func TestFetchExistingPanics(t *testing.T) {
	root := New("")
	require.Panics(t, func() { root.FetchExisting("nope") })
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	root := New("")
	root.Child("state").Child("cycle").SetInt(5)
	root.Child("coordsets").Child("coords").Child("values").Child("x").SetFloat64Array([]float64{1.5, -2.25, 3})
	conn := root.Child("topologies").Child("mesh").Child("elements").Child("connectivity")
	conn.SetInt64Array([]int64{0, 1, 2, 3})
	sizes := root.Child("topologies").ChildAt(0).Child("elements").Child("sizes")
	sizes.SetInt64Array([]int64{4})

	data := root.Encode()
	out, err := Decode(data)
	require.NoError(t, err)

	x, ok := out.Fetch("coordsets/coords/values/x")
	require.True(t, ok)
	xv, _ := x.AsFloat64Array()
	require.Equal(t, []float64{1.5, -2.25, 3}, xv)

	cycle, ok := out.Fetch("state/cycle")
	require.True(t, ok)
	cv, _ := cycle.AsInt()
	require.Equal(t, 5, cv)

	// One quad (sizes holds a single entry, 4): one element.
	require.Equal(t, int64(1), TopologyLength(out.FetchExisting("topologies/mesh")))
	require.Equal(t, uint64(1), MeshNumElements(out))
}

func TestShallowViewExceptSharesStorage(t *testing.T) {
	root := New("")
	root.Child("state").Child("cycle").SetInt(1)
	root.Child("coordsets").Child("coords").Child("values").Child("x").SetFloat64Array([]float64{1})

	view := root.ShallowViewExcept("state")
	require.False(t, view.HasChild("state"))
	require.True(t, view.HasChild("coordsets"))

	// Mutating the shared child through the view is visible from root,
	// confirming non-owning (pointer-shared) semantics.
	view.FetchExisting("coordsets/coords/values/x").SetFloat64Array([]float64{42})
	xv, _ := root.FetchExisting("coordsets/coords/values/x").AsFloat64Array()
	require.Equal(t, []float64{42}, xv)
}
