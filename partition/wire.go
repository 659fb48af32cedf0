package partition

import (
	"fmt"

	"github.com/notargets/meshpart/meshtree"
)

// encodeChunk serializes a chunk's tree for transmission over a
// Communicator (spec.md §6, "Wire format"): meshtree's own length-prefixed
// encoding, reused as-is rather than re-invented at this layer.
func encodeChunk(c Chunk) []byte {
	return c.Tree.Encode()
}

// decodeChunk reconstructs an owned Chunk from bytes received over a
// Communicator. The caller supplies the chunk's metadata (element count,
// destination) separately, since that travels in the chunkInfo struct
// datatype rather than inside the tree payload.
func decodeChunk(data []byte, numElements uint64, destRank, destDomain int32) (Chunk, error) {
	tree, err := meshtree.Decode(data)
	if err != nil {
		return Chunk{}, fmt.Errorf("partition: decode chunk: %w", err)
	}
	return NewChunk(tree, true, numElements, destRank, destDomain)
}
