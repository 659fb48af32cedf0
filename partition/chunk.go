// Package partition implements the collaborator base partitioner
// (component D: selection model, chunk model, target logic) and the
// collective parallel partitioner built on top of it (component E),
// grounded on original_source/src/libs/blueprint/conduit_blueprint_mpi_mesh_partition.{hpp,cpp}.
package partition

import (
	"fmt"

	"github.com/notargets/meshpart"
	"github.com/notargets/meshpart/meshtree"
)

// unsetDestination is the "caller has no preference" sentinel for both
// DestinationRank and DestinationDomain (spec.md §3, "Chunk").
const unsetDestination = -1

// Chunk is a mesh fragment produced by splitting a selection: the unit of
// migration. Owned reports whether the holder must release Tree (a
// received chunk is owned; a non-owning view, such as ExtractSubtree's
// output or a local chunk wrapped during communicate_chunks, is not).
type Chunk struct {
	Tree        *meshtree.Tree
	Owned       bool
	NumElements uint64

	// DestinationRank and DestinationDomain are each either both
	// unsetDestination ("free to move") or both >= 0 ("pinned"); see
	// NewChunk.
	DestinationRank   int32
	DestinationDomain int32
}

// NewChunk validates the chunk invariant from spec.md §3 ("if
// destination_rank == -1 then destination_domain == -1 and vice versa")
// before constructing a Chunk.
func NewChunk(tree *meshtree.Tree, owned bool, numElements uint64, destRank, destDomain int32) (Chunk, error) {
	rankSet := destRank != unsetDestination
	domainSet := destDomain != unsetDestination
	if rankSet != domainSet {
		return Chunk{}, fmt.Errorf("%w: destination rank=%d domain=%d must both be set or both unset",
			meshpart.ErrOptionsTypeMismatch, destRank, destDomain)
	}
	return Chunk{
		Tree: tree, Owned: owned, NumElements: numElements,
		DestinationRank: destRank, DestinationDomain: destDomain,
	}, nil
}

// Pinned reports whether this chunk has caller-specified destinations.
func (c Chunk) Pinned() bool { return c.DestinationDomain != unsetDestination }

// chunkInfo is the struct datatype exchanged by map_chunks' Allgatherv
// (spec.md §6 "Wire format"): fixed field order num_elements (u64),
// destination_rank (i32), destination_domain (i32), with no reliance on
// host padding (spec.md §9 "Struct datatype for collective gather").
type chunkInfo struct {
	NumElements       uint64
	DestinationRank   int32
	DestinationDomain int32
}
