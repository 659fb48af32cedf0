package pointmerge

import (
	"math"
	"testing"

	"github.com/notargets/meshpart"
	"github.com/stretchr/testify/require"
)

// TestTwoUnitSquaresSharingAnEdge implements spec.md scenario S6: point
// merge of two unit squares sharing an edge, tolerance 1e-3, expects
// exactly 6 points with the two shared points each carrying both domains.
func TestTwoUnitSquaresSharingAnEdge(t *testing.T) {
	// Square 0: (0,0) (1,0) (1,1) (0,1)
	a := NewCartesian([]float64{0, 1, 1, 0}, []float64{0, 0, 1, 1}, nil)
	// Square 1 shares the right edge of square 0 ((1,0),(1,1)) as its left
	// edge: (1,0) (2,0) (2,1) (1,1)
	b := NewCartesian([]float64{1, 2, 2, 1}, []float64{0, 0, 1, 1}, nil)

	result := Execute([]CoordSet{a, b}, 1e-3)
	require.Equal(t, 6, result.NumPoints())

	var sharedCount int
	for i := 0; i < result.NumPoints(); i++ {
		rec := result.RecordAt(i)
		if len(rec.OrigDomains) == 2 {
			sharedCount++
			require.ElementsMatch(t, []int{0, 1}, rec.OrigDomains)
		}
	}
	require.Equal(t, 2, sharedCount)
}

// TestIdempotence implements spec.md invariant 2: applying Execute twice
// with the same tolerance yields the same number of points.
func TestIdempotence(t *testing.T) {
	a := NewCartesian([]float64{0, 1, 1, 0, 0.5}, []float64{0, 0, 1, 1, 0.5}, nil)
	first := Execute([]CoordSet{a}, 1e-4)

	second := Execute([]CoordSet{NewCartesian(first.X, first.Y, first.Z)}, 1e-4)
	require.Equal(t, first.NumPoints(), second.NumPoints())
}

// TestRoundTripBound implements spec.md invariant 3: for every input point
// p with merged id q, |p - output[q]| <= 1/S per axis.
func TestRoundTripBound(t *testing.T) {
	a := NewCartesian([]float64{0.123456, 1.987654}, []float64{4.5, -2.25}, []float64{0, 1})
	result := Execute([]CoordSet{a}, 1e-4)

	scale := determineScale(decimalPlacesForTolerance(1e-4))
	bound := 1.0 / scale

	inputs := [][3]float64{{0.123456, 4.5, 0}, {1.987654, -2.25, 1}}
	for i := 0; i < result.NumPoints(); i++ {
		rec := result.RecordAt(i)
		for _, id := range rec.OrigIDs {
			p := inputs[id]
			require.LessOrEqual(t, math.Abs(p[0]-result.X[i]), bound+1e-12)
			require.LessOrEqual(t, math.Abs(p[1]-result.Y[i]), bound+1e-12)
			require.LessOrEqual(t, math.Abs(p[2]-result.Z[i]), bound+1e-12)
		}
	}
}

func TestUnknownCoordinateSystemIsNonFatal(t *testing.T) {
	bad := CoordSet{} // no axes set at all
	good := NewCartesian([]float64{0, 1}, []float64{0, 1}, nil)

	result := Execute([]CoordSet{bad, good}, 1e-4)
	require.Len(t, result.Diagnostics, 1)
	require.ErrorIs(t, result.Diagnostics[0].Err, meshpart.ErrUnknownCoordinateSystem)
	require.Equal(t, 2, result.NumPoints())
}

func Test1DSupport(t *testing.T) {
	a := NewCartesian([]float64{0, 1, 2}, nil, nil)
	result := Execute([]CoordSet{a}, 1e-4)
	require.Equal(t, 3, result.NumPoints())
	for i := 0; i < result.NumPoints(); i++ {
		require.Zero(t, result.Y[i])
		require.Zero(t, result.Z[i])
	}
}

func TestDecimalPlacesForTolerance(t *testing.T) {
	require.Equal(t, 4, decimalPlacesForTolerance(0))
	require.Equal(t, 3, decimalPlacesForTolerance(1e-3))
	require.Equal(t, 6, decimalPlacesForTolerance(1e-9))
}
