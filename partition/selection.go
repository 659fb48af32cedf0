package partition

import (
	"errors"
	"fmt"

	"github.com/notargets/meshpart/partition/metis"
)

// ErrCannotSplit is returned by Selection.Split when the selection is too
// small to split further (fewer than 2 elements).
var ErrCannotSplit = errors.New("selection has fewer than 2 elements, cannot split")

// Selection is an opaque description of a subset of one local domain with
// a well-defined Length in elements (spec.md §3, "Selection"). The base
// partitioner owns selections; Split produces exactly two sub-selections
// whose lengths sum to the original (the "split the largest selection"
// step of the core loop splits one selection into two, growing the
// selection count by one).
type Selection interface {
	Length() int
	Split() (Selection, Selection, error)
}

// ContiguousSelection is a contiguous element range [Start, End) of a
// named topology. It is the default Split strategy; GraphSelection, when
// no adjacency data is available, falls back to the same halving applied
// to its own Elements list, mirroring partitions/partition_builder.go's
// GraphPartition case falling back to BlockPartition.
type ContiguousSelection struct {
	Topology   string
	Start, End int
}

func (s ContiguousSelection) Length() int { return s.End - s.Start }

func (s ContiguousSelection) Split() (Selection, Selection, error) {
	if s.Length() < 2 {
		return nil, nil, fmt.Errorf("%w: selection [%d,%d) over %q", ErrCannotSplit, s.Start, s.End, s.Topology)
	}
	mid := s.Start + s.Length()/2
	return ContiguousSelection{Topology: s.Topology, Start: s.Start, End: mid},
		ContiguousSelection{Topology: s.Topology, Start: mid, End: s.End}, nil
}

// GraphSelection is a selection over an explicit element set with
// optional CSR adjacency (EToE-style: AdjacencyOffsets[e]..AdjacencyOffsets[e+1]
// indexes into AdjacencyList for the neighbors of element e). When
// adjacency is present, Split bisects via github.com/notargets/go-metis's
// graph partitioner to minimize the edge cut between the two halves;
// otherwise it falls back to a contiguous split over Elements, exactly as
// spec.md §9's "free-assignment heuristic" open question anticipates for
// callers without locality-aware input.
type GraphSelection struct {
	Topology         string
	Elements         []int
	AdjacencyOffsets []int32
	AdjacencyList    []int32
}

func (s GraphSelection) Length() int { return len(s.Elements) }

func (s GraphSelection) hasAdjacency() bool {
	return len(s.AdjacencyOffsets) == len(s.Elements)+1 && len(s.AdjacencyList) > 0
}

func (s GraphSelection) Split() (Selection, Selection, error) {
	if s.Length() < 2 {
		return nil, nil, fmt.Errorf("%w: graph selection over %q", ErrCannotSplit, s.Topology)
	}
	if !s.hasAdjacency() {
		mid := s.Length() / 2
		left := GraphSelection{Topology: s.Topology, Elements: append([]int(nil), s.Elements[:mid]...)}
		right := GraphSelection{Topology: s.Topology, Elements: append([]int(nil), s.Elements[mid:]...)}
		return left, right, nil
	}

	part, err := metis.BisectGraph(s.AdjacencyOffsets, s.AdjacencyList)
	if err != nil {
		// A real METIS failure (e.g. a disconnected or degenerate graph)
		// falls back to the same contiguous bisection as the no-adjacency
		// path rather than aborting the whole partition.
		mid := s.Length() / 2
		left := GraphSelection{Topology: s.Topology, Elements: append([]int(nil), s.Elements[:mid]...)}
		right := GraphSelection{Topology: s.Topology, Elements: append([]int(nil), s.Elements[mid:]...)}
		return left, right, nil
	}

	var leftElems, rightElems []int
	for i, side := range part {
		if side == 0 {
			leftElems = append(leftElems, s.Elements[i])
		} else {
			rightElems = append(rightElems, s.Elements[i])
		}
	}
	if len(leftElems) == 0 || len(rightElems) == 0 {
		mid := s.Length() / 2
		return GraphSelection{Topology: s.Topology, Elements: append([]int(nil), s.Elements[:mid]...)},
			GraphSelection{Topology: s.Topology, Elements: append([]int(nil), s.Elements[mid:]...)}, nil
	}
	return GraphSelection{Topology: s.Topology, Elements: leftElems},
		GraphSelection{Topology: s.Topology, Elements: rightElems}, nil
}
