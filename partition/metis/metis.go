// Package metis wraps github.com/notargets/go-metis's graph partitioner
// behind the one operation partition.GraphSelection needs: bisecting a
// CSR adjacency graph into two balanced, edge-cut-minimizing halves. This
// is the real wiring for a dependency that DGKernel's go.mod declares but
// never imports (see DESIGN.md).
package metis

import (
	"errors"

	gometis "github.com/notargets/go-metis"
)

// ErrEmptyGraph is returned when BisectGraph is asked to partition a
// graph with no vertices.
var ErrEmptyGraph = errors.New("metis: empty graph")

// BisectGraph partitions a graph of len(xadj)-1 vertices, given in CSR
// form (xadj, adjncy), into 2 parts using go-metis's recursive bisection
// entry point, and returns the resulting per-vertex partition index (0 or
// 1).
func BisectGraph(xadj, adjncy []int32) ([]int32, error) {
	n := len(xadj) - 1
	if n <= 0 {
		return nil, ErrEmptyGraph
	}
	part := make([]int32, n)
	_, err := gometis.PartGraphRecursive(xadj, adjncy, nil, nil, 2, part)
	if err != nil {
		return nil, err
	}
	return part, nil
}
