package partition

import (
	"fmt"

	"github.com/notargets/meshpart"
	"github.com/notargets/meshpart/meshtree"
)

// BaseTag is the tag-scheme origin for chunk migration messages: a chunk
// with global index g is sent/received tagged BaseTag+g (spec.md §6).
const BaseTag = 12000

// Parallel drives Base's core loop collectively: the four base operations
// spec.md §4.E names (options_get_target, get_total_selections,
// get_largest_selection, map_chunks) are overridden here, plus
// communicate_chunks which has no single-process analogue.
type Parallel struct {
	Base
	Comm Communicator
}

// OptionsGetTarget reads localTarget (already parsed by the caller from
// options; -1/0 means "absent") and reduces MAX across the communicator.
// ok is true iff the global max is positive.
func (p *Parallel) OptionsGetTarget(localTarget int) (target int, ok bool) {
	target = p.Comm.AllreduceMaxInt(localTarget)
	return target, target > 0
}

// GetTotalSelections sums len(p.Selections) across every rank.
func (p *Parallel) GetTotalSelections() int {
	return p.Comm.AllreduceSumInt(len(p.Selections))
}

// GetLargestSelection performs the maxloc protocol spec.md §4.E
// describes: every rank contributes its local-max selection length; the
// winning rank (lowest rank on ties, the standard maxloc tie-break)
// rescans its own selections for the first matching the global max and
// returns that local index, every other rank returns -1. globalMax is
// returned to every rank (not just the winner) because the maxloc
// reduction already computes it identically everywhere; Run uses it to
// decide collectively whether any rank can still split further, without
// an extra round of communication.
func (p *Parallel) GetLargestSelection() (idx int, globalMax int64) {
	localMax := int64(-1)
	for _, s := range p.Selections {
		if l := int64(s.Length()); l > localMax {
			localMax = l
		}
	}
	globalMax, winner := p.Comm.AllreduceMaxLocInt64(localMax)
	if winner != p.Comm.Rank() {
		return -1, globalMax
	}
	for i, s := range p.Selections {
		if int64(s.Length()) == globalMax {
			return i, globalMax
		}
	}
	return -1, globalMax
}

// Run drives the split loop collectively: localTarget is this rank's
// locally-parsed target option (spec.md §4.E "options_get_target"; 0 or
// negative means "absent"), agreed across the communicator via
// OptionsGetTarget before anything else runs. The loop then uses
// GetTotalSelections and GetLargestSelection in place of Base's
// single-process versions, extracts local chunks, computes the global
// destination assignment via MapChunks, and exchanges subtrees via
// CommunicateChunks.
func (p *Parallel) Run(localTarget int, extract func(Selection) (Chunk, error)) ([]Chunk, []Diagnostic, error) {
	target, ok := p.OptionsGetTarget(localTarget)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no rank specified a positive target", meshpart.ErrOptionsTypeMismatch)
	}
	p.Target = target

	for p.GetTotalSelections() < p.Target {
		idx, globalMax := p.GetLargestSelection()
		if globalMax < 2 {
			// No selection anywhere in the fleet has enough elements left
			// to split; every rank sees the same globalMax and stops
			// together rather than diverging on whether Split would fail.
			break
		}
		if idx < 0 {
			continue
		}
		if err := p.Split(idx); err != nil {
			break
		}
	}

	local := make([]Chunk, 0, len(p.Selections))
	for _, s := range p.Selections {
		c, err := extract(s)
		if err != nil {
			return nil, nil, err
		}
		local = append(local, c)
	}

	destRank, destDomain, numElements, offsets, diags, err := p.MapChunks(local)
	if err != nil {
		return nil, diags, err
	}
	chunks, err := p.CommunicateChunks(local, destRank, destDomain, numElements, offsets)
	return chunks, diags, err
}

// Diagnostic is re-exported for convenience at this package's call sites.
type Diagnostic = meshpart.Diagnostic

// MapChunks implements spec.md §4.E's map_chunks: an Allgather of counts
// to compute offsets, an Allgatherv of chunkInfo to build the global
// metadata arrays, then pinned/free/mixed classification.
func (p *Parallel) MapChunks(local []Chunk) (destRank, destDomain []int32, numElements []uint64, offsets []int, diags []Diagnostic, err error) {
	size := p.Comm.Size()
	counts := p.Comm.AllgatherInt(len(local))
	offsets = make([]int, size)
	total := 0
	for r, c := range counts {
		offsets[r] = total
		total += c
	}

	localInfo := make([]chunkInfo, len(local))
	for i, c := range local {
		localInfo[i] = chunkInfo{NumElements: c.NumElements, DestinationRank: c.DestinationRank, DestinationDomain: c.DestinationDomain}
	}
	global := p.Comm.AllgathervChunkInfo(localInfo, counts)

	var pinned, free []int
	for i, info := range global {
		if info.DestinationDomain >= 0 {
			pinned = append(pinned, i)
		} else {
			free = append(free, i)
		}
	}

	destRank = make([]int32, total)
	destDomain = make([]int32, total)
	numElements = make([]uint64, total)
	for i, info := range global {
		numElements[i] = info.NumElements
	}

	switch {
	case len(free) == 0:
		pinnedDomains := map[int32]bool{}
		for _, i := range pinned {
			destRank[i] = global[i].DestinationRank
			destDomain[i] = global[i].DestinationDomain
			pinnedDomains[global[i].DestinationDomain] = true
		}
		if len(pinnedDomains) != p.Target && p.Comm.Rank() == 0 {
			diags = append(diags, Diagnostic{Err: meshpart.ErrTargetMismatch, Rank: -1,
				Msg: fmt.Sprintf("pinned domain count %d does not match target %d", len(pinnedDomains), p.Target)})
		}

	case len(free) == total:
		targetCounts := make([]uint64, p.Target)
		chunkDomain := make([]int, total)
		for _, i := range free {
			best := 0
			bestLoad := targetCounts[0] + global[i].NumElements
			for t := 1; t < p.Target; t++ {
				load := targetCounts[t] + global[i].NumElements
				if load < bestLoad {
					bestLoad = load
					best = t
				}
			}
			targetCounts[best] += global[i].NumElements
			chunkDomain[i] = best
		}

		// Spread the target domains across size ranks: first compute how
		// many domains each rank gets by running i % divsize over
		// [0,target), then hand out contiguous increasing blocks of
		// domain ids sized by those counts (rank 0 gets domains
		// [0,rankDomainCount[0]), rank 1 gets the next block, and so on).
		// Ground truth: conduit_blueprint_mpi_mesh_partition.cpp's
		// map_chunks rank-spreading loop.
		divsize := p.Target
		if size < divsize {
			divsize = size
		}
		rankDomainCount := make([]int, size)
		for d := 0; d < p.Target; d++ {
			rankDomainCount[d%divsize]++
		}
		domainOwner := make([]int, p.Target)
		targetID := 0
		for r := 0; r < size; r++ {
			if rankDomainCount[r] == 0 {
				break
			}
			for j := 0; j < rankDomainCount[r]; j++ {
				domainOwner[targetID] = r
				targetID++
			}
		}
		for _, i := range free {
			destDomain[i] = int32(chunkDomain[i])
			destRank[i] = int32(domainOwner[chunkDomain[i]])
		}

	default:
		return nil, nil, nil, nil, diags, fmt.Errorf("%w: %d pinned of %d total", meshpart.ErrMixedDestinationSpecification, len(pinned), total)
	}

	return destRank, destDomain, numElements, offsets, diags, nil
}

// CommunicateChunks implements spec.md §4.E's communicate_chunks: sends
// local chunks that migrate away, builds non-owning shallow views for
// chunks that stay local, and receives chunks migrating in, all keyed by
// BaseTag+globalIndex.
func (p *Parallel) CommunicateChunks(local []Chunk, destRank, destDomain []int32, numElements []uint64, offsets []int) ([]Chunk, error) {
	rank := p.Comm.Rank()
	total := len(destRank)
	srcRank := make([]int, total)
	for r := 0; r < len(offsets); r++ {
		end := total
		if r+1 < len(offsets) {
			end = offsets[r+1]
		}
		for g := offsets[r]; g < end; g++ {
			srcRank[g] = r
		}
	}

	myOffset := offsets[rank]
	for i, c := range local {
		g := myOffset + i
		if int(destRank[g]) != rank {
			tag := BaseTag + g
			if err := p.Comm.Send(int(destRank[g]), tag, encodeChunk(c)); err != nil {
				return nil, fmt.Errorf("%w: sending chunk %d to rank %d: %v", meshpart.ErrCommunicationFailure, g, destRank[g], err)
			}
		}
	}

	var result []Chunk
	for g := 0; g < total; g++ {
		if int(destRank[g]) != rank {
			continue
		}
		if srcRank[g] == rank {
			localIdx := g - myOffset
			view := chunkView(local[localIdx].Tree, g)
			c, err := NewChunk(view, false, local[localIdx].NumElements, int32(rank), destDomain[g])
			if err != nil {
				return nil, err
			}
			result = append(result, c)
		} else {
			tag := BaseTag + g
			data, err := p.Comm.Recv(srcRank[g], tag)
			if err != nil {
				return nil, fmt.Errorf("%w: receiving chunk %d from rank %d: %v", meshpart.ErrCommunicationFailure, g, srcRank[g], err)
			}
			c, err := decodeChunk(data, numElements[g], int32(rank), destDomain[g])
			if err != nil {
				return nil, err
			}
			setDomainID(c.Tree, g)
			result = append(result, c)
		}
	}
	return result, nil
}

// chunkView builds the non-owning view communicate_chunks uses for a
// chunk that stays on its own rank: every child except state is shared
// with the source tree, and a fresh state subtree carries cycle/time
// forward (if present) plus the new domain_id.
func chunkView(src *meshtree.Tree, domainID int) *meshtree.Tree {
	view := src.ShallowViewExcept("state")
	state := meshtree.New("state")
	if src.HasChild("state") {
		old := src.Child("state")
		if old.HasChild("cycle") {
			if v, ok := old.Child("cycle").AsInt(); ok {
				state.Child("cycle").SetInt(v)
			}
		}
		if old.HasChild("time") {
			if v, ok := old.Child("time").AsFloat64Array(); ok {
				state.Child("time").SetFloat64Array(v)
			}
		}
	}
	state.Child("domain_id").SetInt(domainID)
	view.Children = append(view.Children, state)
	return view
}

// setDomainID overwrites (or creates) state/domain_id on an owned,
// freshly received chunk tree.
func setDomainID(t *meshtree.Tree, domainID int) {
	t.Child("state").Child("domain_id").SetInt(domainID)
}
