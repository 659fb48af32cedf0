package partition

import (
	"github.com/notargets/meshpart/meshtree"
)

// Base is the single-process collaborator surface spec.md §4.D describes:
// an ordered sequence of selections, a target domain count, and the two
// operations (split, extract) the core loop drives. Parallel drives the
// same loop but overrides the five collective hooks in parallel.go.
type Base struct {
	Selections []Selection
	Target     int
}

// TotalSelections is the single-process analogue of get_total_selections:
// just the count of local selections (Parallel's version allreduce-sums
// this across ranks).
func (b *Base) TotalSelections() int { return len(b.Selections) }

// LargestSelectionIndex returns the index of the first selection with the
// maximum Length (ties broken by lowest index, matching maxloc's
// tie-break convention used by Parallel.GetLargestSelection).
func (b *Base) LargestSelectionIndex() int {
	best := -1
	bestLen := -1
	for i, s := range b.Selections {
		if s.Length() > bestLen {
			bestLen = s.Length()
			best = i
		}
	}
	return best
}

// Execute runs the core loop single-process: split the largest selection
// until the selection count reaches Target, then extract chunks.
func (b *Base) Execute(extract func(Selection) (Chunk, error)) ([]Chunk, error) {
	for b.TotalSelections() < b.Target {
		idx := b.LargestSelectionIndex()
		if idx < 0 {
			break
		}
		if err := b.Split(idx); err != nil {
			break
		}
	}
	chunks := make([]Chunk, 0, len(b.Selections))
	for _, s := range b.Selections {
		c, err := extract(s)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// Split replaces the selection at index i with the two selections its
// Split produces, inserted in place so the larger-index half follows
// immediately after.
func (b *Base) Split(i int) error {
	left, right, err := b.Selections[i].Split()
	if err != nil {
		return err
	}
	b.Selections[i] = left
	b.Selections = append(b.Selections, nil)
	copy(b.Selections[i+2:], b.Selections[i+1:])
	b.Selections[i+1] = right
	return nil
}

// ExtractSubtree produces a Chunk for a selection as a shallow, non-owning
// view that shares every child of source. The tree is not cut down to the
// selection's elements: only the chunk's NumElements reflects the
// selection (its Length), while topologies and coordsets are those of the
// whole source.
func ExtractSubtree(source *meshtree.Tree, s Selection, destRank, destDomain int32) (Chunk, error) {
	view := source.ShallowViewExcept("")
	return NewChunk(view, false, uint64(s.Length()), destRank, destDomain)
}

// ExecuteFromTree runs Execute using ExtractSubtree against source as the
// extraction callback, the default single-process driving path for a
// Base whose selections all reference the same tree (e.g. one produced
// by tile.Generate).
func (b *Base) ExecuteFromTree(source *meshtree.Tree) ([]Chunk, error) {
	return b.Execute(func(s Selection) (Chunk, error) {
		return ExtractSubtree(source, s, unsetDestination, unsetDestination)
	})
}
