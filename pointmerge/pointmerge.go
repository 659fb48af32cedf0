// Package pointmerge fuses coincident vertices across multiple coordinate
// sets using a tolerance-quantized spatial hash, producing a unified
// coordinate array and a mapping from original (domain, index) pairs to
// merged point ids.
//
// Grounded line-for-line on original_source/src/libs/blueprint/pointmerge.hpp
// (conduit::blueprint::point_merge): determine_scale, insert and execute
// become determineScale, insert and Execute; iterate_coordinates' per-point
// axis reading is componentsAt, driven by the loop in Execute.
package pointmerge

import (
	"fmt"
	"math"

	"github.com/notargets/meshpart"
)

// CoordSystem identifies the coordinate system of an input or output
// coordinate set.
type CoordSystem int

const (
	Cartesian CoordSystem = iota
	Cylindrical
	Spherical
)

// CoordSet is one input coordinate set, in explicit (array-of-values) form.
// Missing axes default to zero, and which axes are present determines the
// detected coordinate system: {X,Y,Z} -> Cartesian, {R,Z} -> Cylindrical,
// {R,Theta,Phi} -> Spherical (spec.md §4.A step 3).
type CoordSet struct {
	X, Y, Z     []float64 // Cartesian
	R, ZCyl     []float64 // Cylindrical: R + Z (reuses Z axis name, kept separate to avoid ambiguity with Cartesian Z)
	Theta, Phi  []float64 // Spherical
	hasX, hasY  bool
	hasZ        bool
	hasR        bool
	hasZCyl     bool
	hasTheta    bool
	hasPhi      bool
}

// NewCartesian builds a CoordSet from Cartesian arrays. y and z may be nil
// (1D or 2D input), matching the original's "xnode && ynode && znode" /
// "xnode && ynode" / "xnode" only branches in iterate_coordinates.
func NewCartesian(x, y, z []float64) CoordSet {
	cs := CoordSet{X: x, hasX: true}
	if y != nil {
		cs.Y, cs.hasY = y, true
	}
	if z != nil {
		cs.Z, cs.hasZ = z, true
	}
	return cs
}

// NewCylindrical builds a CoordSet from cylindrical (r, z) arrays.
func NewCylindrical(r, z []float64) CoordSet {
	return CoordSet{R: r, hasR: true, ZCyl: z, hasZCyl: true}
}

// NewSpherical builds a CoordSet from spherical (r, theta, phi) arrays.
func NewSpherical(r, theta, phi []float64) CoordSet {
	return CoordSet{R: r, hasR: true, Theta: theta, hasTheta: true, Phi: phi, hasPhi: true}
}

func (cs CoordSet) system() (CoordSystem, bool) {
	switch {
	case cs.hasX:
		return Cartesian, true
	case cs.hasR && cs.hasZCyl:
		return Cylindrical, true
	case cs.hasR && cs.hasTheta:
		return Spherical, true
	default:
		return 0, false
	}
}

func (cs CoordSet) n() int {
	switch {
	case cs.hasX:
		return len(cs.X)
	case cs.hasR:
		return len(cs.R)
	}
	return 0
}

// Record maps one quantized output point back to every (domain, point id)
// pair in the inputs that merged into it, per spec.md §3's Point-Merge
// Record.
type Record struct {
	OrigDomains []int
	OrigIDs     []int
}

type key [3]int64

// Result is the output of Execute: a unified explicit Cartesian coordinate
// set plus the original->merged mapping, retained internally as the spec
// requires ("internally retains the original→merged index map").
type Result struct {
	X, Y, Z []float64

	// order holds keys in first-insertion order so output and RecordAt
	// iterate deterministically (see SPEC_FULL.md §5.A: Go map iteration
	// order is not stable, so merge order is insertion order, not the
	// original's std::map sorted-key order).
	order   []key
	records map[key]*Record
	scale   float64

	// Diagnostics collects non-fatal ErrUnknownCoordinateSystem conditions
	// (spec.md §7).
	Diagnostics []meshpart.Diagnostic
}

// NumPoints returns the number of merged output points.
func (r *Result) NumPoints() int { return len(r.order) }

// RecordAt returns the Record for the i-th merged output point (same order
// as X/Y/Z).
func (r *Result) RecordAt(i int) *Record {
	return r.records[r.order[i]]
}

// scaleTable mirrors point_merge::determine_scale's lookup table, indexed
// by decimal_places 0..6. SPEC_FULL.md §3 supplement 4: unlike the
// original (which hardcodes decimal_places=4 regardless of its tolerance
// argument), Execute derives decimal_places from tolerance via
// decimalPlacesForTolerance below.
var scaleTable = [7]float64{
	1,
	2 << 4,
	2 << 7,
	2 << 10,
	2 << 14,
	2 << 17,
	2 << 20,
}

func determineScale(decimalPlaces int) float64 {
	if decimalPlaces < 0 {
		decimalPlaces = 0
	}
	if decimalPlaces >= len(scaleTable) {
		decimalPlaces = len(scaleTable) - 1
	}
	return scaleTable[decimalPlaces]
}

// decimalPlacesForTolerance derives a retained-decimal-places count from a
// tolerance value: tolerance 10^-p maps to p decimal places, clamped to the
// table's [0,6] range. Tolerance <= 0 defaults to 4, matching the
// original's hardcoded default.
func decimalPlacesForTolerance(tolerance float64) int {
	if tolerance <= 0 {
		return 4
	}
	p := int(math.Round(-math.Log10(tolerance)))
	if p < 0 {
		p = 0
	}
	if p > 6 {
		p = 6
	}
	return p
}

// Execute merges coordsets within tolerance, producing a unified explicit
// Cartesian coordinate set. tolerance is a distance such as 1e-3, turned
// into a number of retained decimal places by decimalPlacesForTolerance
// (10^-p -> p; tolerance <= 0 -> 4).
func Execute(coordsets []CoordSet, tolerance float64) *Result {
	r := &Result{
		records: make(map[key]*Record),
		scale:   determineScale(decimalPlacesForTolerance(tolerance)),
	}

	for domainID, cs := range coordsets {
		system, ok := cs.system()
		if !ok {
			r.Diagnostics = append(r.Diagnostics, meshpart.Diagnostic{
				Err:  meshpart.ErrUnknownCoordinateSystem,
				Rank: -1,
				Msg:  fmt.Sprintf("coordset %d: %v: no recognized axis names", domainID, meshpart.ErrUnknownCoordinateSystem),
			})
			continue
		}
		n := cs.n()
		for i := 0; i < n; i++ {
			x, y, z := componentsAt(cs, system, i)
			r.insert(domainID, i, x, y, z)
		}
	}
	return r
}

// componentsAt extracts the i-th point's coordinates in whatever system cs
// natively holds them (only Cartesian-in/Cartesian-out is implemented, per
// spec.md §9's open question; cylindrical/spherical points are accepted on
// input but their axis values are read directly since no non-Cartesian
// output path exists, matching point_merge::insert's
// "case coord_system::cartesian: default:" fallthrough for every input
// system it quantizes against a Cartesian key in the original).
func componentsAt(cs CoordSet, system CoordSystem, i int) (x, y, z float64) {
	switch system {
	case Cartesian:
		x = cs.X[i]
		if cs.hasY {
			y = cs.Y[i]
		}
		if cs.hasZ {
			z = cs.Z[i]
		}
	case Cylindrical:
		x = cs.R[i]
		y = cs.ZCyl[i]
	case Spherical:
		x = cs.R[i]
		y = cs.Theta[i]
		z = cs.Phi[i]
	}
	return
}

func (r *Result) insert(domainID, pointID int, x, y, z float64) {
	k := key{
		int64(math.Round(x * r.scale)),
		int64(math.Round(y * r.scale)),
		int64(math.Round(z * r.scale)),
	}
	rec, ok := r.records[k]
	if !ok {
		rec = &Record{}
		r.records[k] = rec
		r.order = append(r.order, k)
		r.X = append(r.X, float64(k[0])/r.scale)
		r.Y = append(r.Y, float64(k[1])/r.scale)
		r.Z = append(r.Z, float64(k[2])/r.scale)
	}
	rec.OrigDomains = append(rec.OrigDomains, domainID)
	rec.OrigIDs = append(rec.OrigIDs, pointID)
}
