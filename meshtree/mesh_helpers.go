package meshtree

// TopologyLength returns the number of elements described by a
// "topologies/<name>" subtree, reading "elements/sizes" (every topology
// this module produces is unstructured and carries an explicit per-element
// size array).
func TopologyLength(topo *Tree) int64 {
	elements, ok := topo.Fetch("elements")
	if !ok {
		return 0
	}
	sizes, ok := elements.Fetch("sizes")
	if !ok {
		return 0
	}
	return int64(sizes.IndexLen())
}

// MeshNumElements sums TopologyLength across every child of "topologies",
// mirroring map_chunks' per-chunk element count
// (conduit_blueprint_mpi_mesh_partition.cpp: "len +=
// conduit::blueprint::mesh::topology::length(n_topos[j])").
func MeshNumElements(mesh *Tree) uint64 {
	topos, ok := mesh.Fetch("topologies")
	if !ok {
		return 0
	}
	var total uint64
	for _, t := range topos.Children {
		total += uint64(TopologyLength(t))
	}
	return total
}
