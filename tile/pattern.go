// Package tile implements the immutable tile pattern (component B) and the
// tiled unstructured mesh generator built from it (component C), grounded
// on original_source/src/libs/blueprint/conduit_blueprint_mesh_examples_tiled.cpp's
// detail::Tile / detail::Tiler classes.
package tile

import (
	"fmt"

	"github.com/notargets/meshpart"
	"github.com/notargets/meshpart/meshtree"
)

// Pattern is the immutable template tiled across the generator's nx*ny*nz
// grid: an ordered sequence of 2D points, an ordered quad list (4-tuples of
// point indices), and four edge-index sequences ordered along their edge
// (spec.md §3, "Tile Pattern").
type Pattern struct {
	X, Y             []float64
	Quads            []int // flattened 4-tuples
	Left, Right      []int
	Bottom, Top      []int
	Width, Height    float64
}

// Description is a caller-supplied replacement pattern, as read from the
// "tile" option (spec.md §6) or constructed directly.
type Description struct {
	X, Y                     []float64
	Quads                    []int
	Left, Right, Bottom, Top []int
}

// NumQuads returns the number of quads in the pattern.
func (p *Pattern) NumQuads() int { return len(p.Quads) / 4 }

// Quad returns the 4 point indices of quad i.
func (p *Pattern) Quad(i int) [4]int {
	return [4]int{p.Quads[4*i], p.Quads[4*i+1], p.Quads[4*i+2], p.Quads[4*i+3]}
}

func computeExtent(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// NewPattern validates desc against the invariants in spec.md §4.B and
// constructs a Pattern from it: |x| == |y|, |quads| % 4 == 0, every index
// in quads and the four edge arrays is in [0, |x|), left/right have equal
// length, bottom/top have equal length.
func NewPattern(desc Description) (*Pattern, error) {
	n := len(desc.X)
	if n != len(desc.Y) {
		return nil, fmt.Errorf("%w: len(x)=%d != len(y)=%d", meshpart.ErrInvalidPattern, n, len(desc.Y))
	}
	if len(desc.Quads)%4 != 0 {
		return nil, fmt.Errorf("%w: len(quads)=%d not a multiple of 4", meshpart.ErrInvalidPattern, len(desc.Quads))
	}
	if len(desc.Left) != len(desc.Right) {
		return nil, fmt.Errorf("%w: len(left)=%d != len(right)=%d", meshpart.ErrInvalidPattern, len(desc.Left), len(desc.Right))
	}
	if len(desc.Bottom) != len(desc.Top) {
		return nil, fmt.Errorf("%w: len(bottom)=%d != len(top)=%d", meshpart.ErrInvalidPattern, len(desc.Bottom), len(desc.Top))
	}
	check := func(name string, idx []int) error {
		for _, i := range idx {
			if i < 0 || i >= n {
				return fmt.Errorf("%w: %s index %d out of range [0,%d)", meshpart.ErrInvalidPattern, name, i, n)
			}
		}
		return nil
	}
	for _, c := range []struct {
		name string
		idx  []int
	}{
		{"quads", desc.Quads}, {"left", desc.Left}, {"right", desc.Right},
		{"bottom", desc.Bottom}, {"top", desc.Top},
	} {
		if err := check(c.name, c.idx); err != nil {
			return nil, err
		}
	}

	return &Pattern{
		X: desc.X, Y: desc.Y, Quads: desc.Quads,
		Left: desc.Left, Right: desc.Right, Bottom: desc.Bottom, Top: desc.Top,
		Width: computeExtent(desc.X), Height: computeExtent(desc.Y),
	}, nil
}

// NewDefaultPattern builds the built-in 33-point, 24-quad composite pattern
// (five points per edge). Ground truth: Tiler::initialize()'s literal
// arrays in conduit_blueprint_mesh_examples_tiled.cpp.
func NewDefaultPattern() *Pattern {
	desc := Description{
		X: []float64{
			0., 3., 10., 17., 20.,
			0., 3., 17., 20.,
			5., 15.,
			7., 10., 13.,
			0., 7., 10., 13., 20.,
			7., 10., 13.,
			5., 15.,
			0., 3., 17., 20.,
			0., 3., 10., 17., 20.,
		},
		Y: []float64{
			0., 0., 0., 0., 0.,
			3., 3., 3., 3.,
			5., 5.,
			7., 7., 7.,
			10., 10., 10., 10., 10.,
			13., 13., 13.,
			15., 15.,
			17., 17., 17., 17.,
			20., 20., 20., 20., 20.,
		},
		Quads: []int{
			0, 1, 6, 5,
			1, 2, 9, 6,
			2, 12, 11, 9,
			5, 6, 9, 14,
			9, 11, 15, 14,
			11, 12, 16, 15,
			2, 3, 7, 10,
			3, 4, 8, 7,
			7, 8, 18, 10,
			2, 10, 13, 12,
			12, 13, 17, 16,
			10, 18, 17, 13,
			14, 22, 25, 24,
			14, 15, 19, 22,
			15, 16, 20, 19,
			24, 25, 29, 28,
			22, 30, 29, 25,
			19, 20, 30, 22,
			16, 17, 21, 20,
			17, 18, 23, 21,
			18, 27, 26, 23,
			20, 21, 23, 30,
			23, 26, 31, 30,
			26, 27, 32, 31,
		},
		Left:   []int{0, 5, 14, 24, 28},
		Right:  []int{4, 8, 18, 27, 32},
		Bottom: []int{0, 1, 2, 3, 4},
		Top:    []int{28, 29, 30, 31, 32},
	}
	p, err := NewPattern(desc)
	if err != nil {
		// The built-in literal pattern is a compile-time constant; a
		// failure here means this package itself is broken.
		panic(fmt.Errorf("tile: default pattern is invalid: %w", err))
	}
	return p
}

// DescriptionFromTree reads a pattern description out of a meshtree.Tree
// shaped like the "tile" option (spec.md §6): children "x","y","quads",
// "left","right","bottom","top".
func DescriptionFromTree(t *meshtree.Tree) (Description, error) {
	getF := func(name string) ([]float64, error) {
		n, ok := t.Fetch(name)
		if !ok {
			return nil, fmt.Errorf("%w: tile option missing %q", meshpart.ErrOptionsTypeMismatch, name)
		}
		v, ok := n.AsFloat64Array()
		if !ok {
			return nil, fmt.Errorf("%w: tile option %q is not a float64 array", meshpart.ErrOptionsTypeMismatch, name)
		}
		return v, nil
	}
	getI := func(name string) ([]int, error) {
		n, ok := t.Fetch(name)
		if !ok {
			return nil, fmt.Errorf("%w: tile option missing %q", meshpart.ErrOptionsTypeMismatch, name)
		}
		if n.IndexLen() == 0 {
			// Zero-length edge arrays are legal; distinguish from "wrong type"
			// by kind check.
			if n.Kind() != meshtree.KindInt32Array && n.Kind() != meshtree.KindInt64Array {
				return nil, fmt.Errorf("%w: tile option %q is not an index array", meshpart.ErrOptionsTypeMismatch, name)
			}
			return nil, nil
		}
		out := make([]int, n.IndexLen())
		for i := range out {
			out[i] = int(n.IndexAt(i))
		}
		return out, nil
	}

	var desc Description
	var err error
	if desc.X, err = getF("x"); err != nil {
		return Description{}, err
	}
	if desc.Y, err = getF("y"); err != nil {
		return Description{}, err
	}
	if desc.Quads, err = getI("quads"); err != nil {
		return Description{}, err
	}
	if desc.Left, err = getI("left"); err != nil {
		return Description{}, err
	}
	if desc.Right, err = getI("right"); err != nil {
		return Description{}, err
	}
	if desc.Bottom, err = getI("bottom"); err != nil {
		return Description{}, err
	}
	if desc.Top, err = getI("top"); err != nil {
		return Description{}, err
	}
	return desc, nil
}
