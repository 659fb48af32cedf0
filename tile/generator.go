package tile

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/meshpart/meshtree"
)

// BoundarySide identifies which face of the logical brick a boundary face
// lies on, using the wire encoding from spec.md §6.
type BoundarySide int

const (
	BoundaryLeft BoundarySide = iota
	BoundaryRight
	BoundaryBottom
	BoundaryTop
	BoundaryBack
	BoundaryFront
)

// Options configures Generate, mirroring spec.md §6's enumerated tiled
// options one-to-one, plus supplemented feature 3 (DebugFields).
type Options struct {
	// Tile replaces the default pattern when non-nil.
	Tile *Description
	// Reorder enables spatial element reordering; nil means "unset"
	// (default on), matching the original's "reorder" option being
	// absent (default true).
	Reorder *bool
	// DataType selects 32-bit connectivity storage when one of
	// "int", "int32", "integer"; any other value (including "") keeps
	// the platform index width.
	DataType string
	// Extents overrides tile size and origin: [x0,x1,y0,y1,z0,z1].
	Extents *[6]float64
	// Domain is this process's (ix,iy,iz) position within Domains.
	Domain *[3]int
	// Domains is the (Nx,Ny,Nz) domain decomposition Domain is part of.
	Domains *[3]int
	// DebugFields adds fields/nodeids, fields/elemids, fields/dist to the
	// output mesh (supplemented feature 3).
	DebugFields bool
}

func (o Options) reorderEnabled() bool {
	if o.Reorder == nil {
		return true
	}
	return *o.Reorder
}

func (o Options) use32BitIndex() bool {
	switch o.DataType {
	case "int", "int32", "integer":
		return true
	}
	return false
}

// tileInstance is one placed instance of the pattern: a point-id array
// mapping each template point to a global point id, or invalidPoint if not
// yet materialized. Ground truth: detail::Tile.
type tileInstance struct {
	ptids []int64
}

const invalidPoint int64 = -1

func newTileInstance(n int) tileInstance {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = invalidPoint
	}
	return tileInstance{ptids: ids}
}

func (ti tileInstance) at(indices []int) []int64 {
	out := make([]int64, len(indices))
	for i, idx := range indices {
		out[i] = ti.ptids[idx]
	}
	return out
}

func (ti tileInstance) setAt(indices []int, ids []int64) {
	for i, idx := range indices {
		ti.ptids[idx] = ids[i]
	}
}

// addPoints materializes any still-invalid template points of ti by
// transforming them through M (the (x,y,1)*M projective transform, ground
// truth: Tiler::addPoints) and appending to x, y.
func addPoints(pat *Pattern, m *mat.Dense, ti tileInstance, x, y *[]float64) {
	row := mat.NewDense(1, 3, nil)
	result := mat.NewDense(1, 3, nil)
	for i := range pat.X {
		if ti.ptids[i] != invalidPoint {
			continue
		}
		ti.ptids[i] = int64(len(*x))
		row.Set(0, 0, pat.X[i])
		row.Set(0, 1, pat.Y[i])
		row.Set(0, 2, 1)
		result.Mul(row, m)
		h := result.At(0, 2)
		*x = append(*x, result.At(0, 0)/h)
		*y = append(*y, result.At(0, 1)/h)
	}
}

// visitor receives one emitted boundary face (2 ids for 2D, 4 for 3D) and
// its side label, in the push style spec.md §9 describes as equivalent to
// a pull-style sequence.
type visitor func(ids []int64, side BoundarySide)

// iterateFaces walks one tile's pattern quads, optionally in reverse point
// order (for a face seen from the opposite side), offsetting every id by
// offset. Ground truth: Tiler::iterateFaces.
func iterateFaces(pat *Pattern, ti tileInstance, offset int64, reverse bool, side BoundarySide, visit visitor) {
	order := [4]int{0, 1, 2, 3}
	if reverse {
		order = [4]int{3, 2, 1, 0}
	}
	for i := 0; i < pat.NumQuads(); i++ {
		q := pat.Quad(i)
		ids := []int64{
			offset + ti.ptids[q[order[0]]],
			offset + ti.ptids[q[order[1]]],
			offset + ti.ptids[q[order[2]]],
			offset + ti.ptids[q[order[3]]],
		}
		visit(ids, side)
	}
}

// addHexs emits one hex per pattern quad joining plane1Offset and
// plane2Offset. Ground truth: Tiler::addHexs.
func addHexs(pat *Pattern, ti tileInstance, plane1Offset, plane2Offset int64, conn, sizes *[]int64) {
	for i := 0; i < pat.NumQuads(); i++ {
		q := pat.Quad(i)
		for _, idx := range q {
			*conn = append(*conn, plane1Offset+ti.ptids[idx])
		}
		for _, idx := range q {
			*conn = append(*conn, plane2Offset+ti.ptids[idx])
		}
		*sizes = append(*sizes, 8)
	}
}

// boundaryFlags decides which of the six sides should emit boundary faces:
// all six unless a 3-component domain/domains pair places this brick away
// from an extremal face of the overall decomposition. Ground truth:
// Tiler::boundaryFlags.
func boundaryFlags(opts Options) [6]bool {
	var flags [6]bool
	for i := range flags {
		flags[i] = true
	}
	if opts.Domain == nil || opts.Domains == nil {
		return flags
	}
	d, doms := *opts.Domain, *opts.Domains
	ndoms := doms[0] * doms[1] * doms[2]
	if ndoms <= 1 {
		return flags
	}
	flags[BoundaryLeft] = d[0] == 0
	flags[BoundaryRight] = d[0] == doms[0]-1
	flags[BoundaryBottom] = d[1] == 0
	flags[BoundaryTop] = d[1] == doms[1]-1
	flags[BoundaryBack] = d[2] == 0
	flags[BoundaryFront] = d[2] == doms[2]-1
	return flags
}

// iterateBoundary2D walks the four line-segment sides of the whole nx*ny
// brick in canonical order: Left top-to-bottom, Bottom left-to-right,
// Right bottom-to-top, Top right-to-left. Ground truth:
// Tiler::iterateBoundary2D.
func iterateBoundary2D(tiles []tileInstance, pat *Pattern, nx, ny int, flags [6]bool, visit visitor) {
	at := func(i, j int) tileInstance { return tiles[j*nx+i] }

	if flags[BoundaryLeft] {
		i := 0
		for j := ny - 1; j >= 0; j-- {
			ids := at(i, j).at(pat.Left)
			for bi := len(ids) - 1; bi > 0; bi-- {
				visit([]int64{ids[bi], ids[bi-1]}, BoundaryLeft)
			}
		}
	}
	if flags[BoundaryBottom] {
		j := 0
		for i := 0; i < nx; i++ {
			ids := at(i, j).at(pat.Bottom)
			for bi := 0; bi < len(ids)-1; bi++ {
				visit([]int64{ids[bi], ids[bi+1]}, BoundaryBottom)
			}
		}
	}
	if flags[BoundaryRight] {
		i := nx - 1
		for j := 0; j < ny; j++ {
			ids := at(i, j).at(pat.Right)
			for bi := 0; bi < len(ids)-1; bi++ {
				visit([]int64{ids[bi], ids[bi+1]}, BoundaryRight)
			}
		}
	}
	if flags[BoundaryTop] {
		j := ny - 1
		for i := nx - 1; i >= 0; i-- {
			ids := at(i, j).at(pat.Top)
			for bi := len(ids) - 1; bi > 0; bi-- {
				visit([]int64{ids[bi], ids[bi-1]}, BoundaryTop)
			}
		}
	}
}

// iterateBoundary3D is iterateBoundary2D's solid analogue: each of
// Left/Right/Bottom/Top emits a quad per (plane, tile-segment) offsetting
// the 2D segment into planes k and k+1; Back/Front emit one quad per
// pattern quad at plane 0 (reversed) / plane nz (forward). Ground truth:
// Tiler::iterateBoundary3D.
func iterateBoundary3D(tiles []tileInstance, pat *Pattern, nx, ny, nz, ptsPerPlane int, flags [6]bool, visit visitor) {
	at := func(i, j int) tileInstance { return tiles[j*nx+i] }
	ppp := int64(ptsPerPlane)

	// Left: i=0, j descending ny-1..0
	if flags[BoundaryLeft] {
		for k := 0; k < nz; k++ {
			offset1, offset2 := int64(k)*ppp, int64(k+1)*ppp
			for j := ny - 1; j >= 0; j-- {
				emitEdgeQuad(at(0, j).at(pat.Left), offset1, offset2, true, BoundaryLeft, visit)
			}
		}
	}
	// Right: i=nx-1, j ascending 0..ny-1
	if flags[BoundaryRight] {
		for k := 0; k < nz; k++ {
			offset1, offset2 := int64(k)*ppp, int64(k+1)*ppp
			for j := 0; j < ny; j++ {
				emitEdgeQuad(at(nx-1, j).at(pat.Right), offset1, offset2, false, BoundaryRight, visit)
			}
		}
	}
	// Bottom: j=0, i ascending 0..nx-1
	if flags[BoundaryBottom] {
		for k := 0; k < nz; k++ {
			offset1, offset2 := int64(k)*ppp, int64(k+1)*ppp
			for i := 0; i < nx; i++ {
				emitEdgeQuad(at(i, 0).at(pat.Bottom), offset1, offset2, false, BoundaryBottom, visit)
			}
		}
	}
	// Top: j=ny-1, i descending nx-1..0
	if flags[BoundaryTop] {
		for k := 0; k < nz; k++ {
			offset1, offset2 := int64(k)*ppp, int64(k+1)*ppp
			for i := nx - 1; i >= 0; i-- {
				emitEdgeQuad(at(i, ny-1).at(pat.Top), offset1, offset2, true, BoundaryTop, visit)
			}
		}
	}
	if flags[BoundaryBack] {
		for j := 0; j < ny; j++ {
			for i := nx - 1; i >= 0; i-- {
				iterateFaces(pat, at(i, j), 0, true, BoundaryBack, visit)
			}
		}
	}
	if flags[BoundaryFront] {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				iterateFaces(pat, at(i, j), int64(nz)*ppp, false, BoundaryFront, visit)
			}
		}
	}
}

// emitEdgeQuad turns one 2D boundary segment (a consecutive pair from an
// edge's point-id list) into a quad spanning offset1..offset2, walking the
// edge list in descending (descend=true, for Left/Top) or ascending order.
func emitEdgeQuad(ids []int64, offset1, offset2 int64, descend bool, side BoundarySide, visit visitor) {
	if descend {
		for bi := len(ids) - 1; bi > 0; bi-- {
			visit([]int64{offset1 + ids[bi], offset1 + ids[bi-1], offset2 + ids[bi-1], offset2 + ids[bi]}, side)
		}
	} else {
		for bi := 0; bi < len(ids)-1; bi++ {
			visit([]int64{offset1 + ids[bi], offset1 + ids[bi+1], offset2 + ids[bi+1], offset2 + ids[bi]}, side)
		}
	}
}

// Generate produces an unstructured mesh tiling pat (or the default
// pattern) nx by ny times, extruded into nz layers of hexes when nz >= 1
// (quads when nz == 0). Ground truth: Tiler::generate.
func Generate(nx, ny, nz int, opts Options) (*meshtree.Tree, error) {
	pat := NewDefaultPattern()
	if opts.Tile != nil {
		p, err := NewPattern(*opts.Tile)
		if err != nil {
			return nil, err
		}
		pat = p
	}

	origin := [3]float64{0, 0, 0}
	tx, ty := pat.Width, pat.Height
	z1 := math.Max(pat.Width, pat.Height) * float64(nz)

	if opts.Extents != nil {
		e := *opts.Extents
		tx = (e[1] - e[0]) / float64(nx)
		ty = (e[3] - e[2]) / float64(ny)
		origin[0], origin[1], origin[2] = e[0], e[2], e[4]
		z1 = e[5]
	} else if opts.Domain != nil && opts.Domains != nil {
		d := *opts.Domain
		origin[0] = float64(d[0]) * float64(nx) * pat.Width
		origin[1] = float64(d[1]) * float64(ny) * pat.Height
		origin[2] = float64(d[2]) * z1
		z1 = origin[2] + z1
	}

	m := mat.NewDense(3, 3, []float64{
		tx / pat.Width, 0, 0,
		0, ty / pat.Height, 0,
		origin[0], origin[1], 1,
	})

	tiles := make([]tileInstance, nx*ny)
	var x, y []float64
	for j := 0; j < ny; j++ {
		m.Set(2, 0, origin[0])
		for i := 0; i < nx; i++ {
			cur := newTileInstance(len(pat.X))
			tiles[j*nx+i] = cur
			if i > 0 {
				prev := tiles[j*nx+i-1]
				cur.setAt(pat.Left, prev.at(pat.Right))
			}
			if j > 0 {
				prev := tiles[(j-1)*nx+i]
				cur.setAt(pat.Bottom, prev.at(pat.Top))
			}
			addPoints(pat, m, cur, &x, &y)
			m.Set(2, 0, m.At(2, 0)+tx)
		}
		m.Set(2, 1, m.At(2, 1)+ty)
	}

	var z []float64
	var conn, sizes []int64
	ptsPerPlane := 0
	if nz < 1 {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				iterateFaces(pat, tiles[j*nx+i], 0, false, BoundaryBack, func(ids []int64, _ BoundarySide) {
					conn = append(conn, ids...)
					sizes = append(sizes, int64(len(ids)))
				})
			}
		}
	} else {
		ptsPerPlane = len(x)
		nplanes := nz + 1
		for i := 0; i < ptsPerPlane; i++ {
			z = append(z, origin[2])
		}
		for p := 1; p < nplanes; p++ {
			t := float64(p) / float64(nplanes-1)
			zv := (1-t)*origin[2] + t*z1
			for i := 0; i < ptsPerPlane; i++ {
				x = append(x, x[i])
				y = append(y, y[i])
				z = append(z, zv)
			}
		}
		ppp := int64(ptsPerPlane)
		for k := 0; k < nz; k++ {
			offset1, offset2 := int64(k)*ppp, int64(k+1)*ppp
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					addHexs(pat, tiles[j*nx+i], offset1, offset2, &conn, &sizes)
				}
			}
		}
	}

	mesh := meshtree.New("")
	coords := mesh.Child("coordsets").Child("coords")
	coords.Child("type").SetString("explicit")
	values := coords.Child("values")
	values.Child("x").SetFloat64Array(x)
	values.Child("y").SetFloat64Array(y)
	if len(z) > 0 {
		values.Child("z").SetFloat64Array(z)
	}

	meshTopo := mesh.Child("topologies").Child("mesh")
	meshTopo.Child("type").SetString("unstructured")
	meshTopo.Child("coordset").SetString("coords")
	shape := "quad"
	if len(z) > 0 {
		shape = "hex"
	}
	meshTopo.Child("elements").Child("shape").SetString(shape)
	setIndexArray(meshTopo.Child("elements").Child("connectivity"), conn, opts.use32BitIndex())
	setIndexArray(meshTopo.Child("elements").Child("sizes"), sizes, opts.use32BitIndex())

	if opts.DebugFields {
		addDebugFields(mesh, x, y, z, sizes)
	}

	reorder := opts.reorderEnabled()
	var old2New []int64
	if reorder {
		elemOrder := spatialElementOrder(nx, ny, nz, pat, conn, sizes, x, y, z)
		conn, sizes, old2New = reorderTopology(conn, sizes, elemOrder, len(x))
		x, y, z = reorderPoints(x, y, z, old2New)
		values.Child("x").SetFloat64Array(x)
		values.Child("y").SetFloat64Array(y)
		if len(z) > 0 {
			values.Child("z").SetFloat64Array(z)
		}
		setIndexArray(meshTopo.Child("elements").Child("connectivity"), conn, opts.use32BitIndex())
		setIndexArray(meshTopo.Child("elements").Child("sizes"), sizes, opts.use32BitIndex())
		if opts.DebugFields {
			// Debug fields are recomputed post-reorder so nodeids/elemids
			// still describe the emitted (reordered) arrays.
			addDebugFields(mesh, x, y, z, sizes)
		}
	}

	renumber := func(id int64) int64 {
		if old2New == nil {
			return id
		}
		return old2New[id]
	}

	flags := boundaryFlags(opts)
	var bconn, bsizes []int64
	var btype []int32
	bvisit := func(ids []int64, side BoundarySide) {
		for _, id := range ids {
			bconn = append(bconn, renumber(id))
		}
		bsizes = append(bsizes, int64(len(ids)))
		btype = append(btype, int32(side))
	}
	if nz < 1 {
		iterateBoundary2D(tiles, pat, nx, ny, flags, bvisit)
	} else {
		iterateBoundary3D(tiles, pat, nx, ny, nz, ptsPerPlane, flags, bvisit)
	}

	if len(bconn) > 0 {
		bshape := "line"
		if nz >= 1 {
			bshape = "quad"
		}
		boundaryTopo := mesh.Child("topologies").Child("boundary")
		boundaryTopo.Child("type").SetString("unstructured")
		boundaryTopo.Child("coordset").SetString("coords")
		boundaryTopo.Child("elements").Child("shape").SetString(bshape)
		setIndexArray(boundaryTopo.Child("elements").Child("connectivity"), bconn, opts.use32BitIndex())
		setIndexArray(boundaryTopo.Child("elements").Child("sizes"), bsizes, opts.use32BitIndex())

		btypeNode := mesh.Child("fields").Child("boundary_type")
		btypeNode.Child("topology").SetString("boundary")
		btypeNode.Child("association").SetString("element")
		btypeNode.Child("values").SetInt32Array(btype)
	}

	return mesh, nil
}

func setIndexArray(n *meshtree.Tree, v []int64, use32 bool) {
	if use32 {
		out := make([]int32, len(v))
		for i, vv := range v {
			out[i] = int32(vv)
		}
		n.SetInt32Array(out)
		return
	}
	n.SetInt64Array(v)
}

// addDebugFields adds the optional fields/nodeids, fields/elemids,
// fields/dist fields (supplemented feature 3).
func addDebugFields(mesh *meshtree.Tree, x, y, z []float64, sizes []int64) {
	npts := len(x)
	nodeids := make([]int64, npts)
	for i := range nodeids {
		nodeids[i] = int64(i)
	}
	nodeidsNode := mesh.Child("fields").Child("nodeids")
	nodeidsNode.Child("topology").SetString("mesh")
	nodeidsNode.Child("association").SetString("vertex")
	nodeidsNode.Child("values").SetInt64Array(nodeids)

	elemids := make([]int64, len(sizes))
	for i := range elemids {
		elemids[i] = int64(i)
	}
	elemidsNode := mesh.Child("fields").Child("elemids")
	elemidsNode.Child("topology").SetString("mesh")
	elemidsNode.Child("association").SetString("element")
	elemidsNode.Child("values").SetInt64Array(elemids)

	dist := make([]float64, npts)
	for i := range dist {
		zz := 0.0
		if len(z) > 0 {
			zz = z[i]
		}
		dist[i] = math.Sqrt(x[i]*x[i] + y[i]*y[i] + zz*zz)
	}
	distNode := mesh.Child("fields").Child("dist")
	distNode.Child("topology").SetString("mesh")
	distNode.Child("association").SetString("vertex")
	distNode.Child("values").SetFloat64Array(dist)
}
