package partition

import (
	"errors"
	"testing"

	"github.com/notargets/meshpart"
	"github.com/notargets/meshpart/meshtree"
	"github.com/stretchr/testify/require"
)

func TestNewChunkRejectsPartialDestination(t *testing.T) {
	tree := meshtree.New("mesh")
	_, err := NewChunk(tree, true, 10, 2, unsetDestination)
	require.Error(t, err)
	require.True(t, errors.Is(err, meshpart.ErrOptionsTypeMismatch))
}

func TestChunkPinned(t *testing.T) {
	tree := meshtree.New("mesh")
	free, err := NewChunk(tree, true, 10, unsetDestination, unsetDestination)
	require.NoError(t, err)
	require.False(t, free.Pinned())

	pinned, err := NewChunk(tree, true, 10, 0, 3)
	require.NoError(t, err)
	require.True(t, pinned.Pinned())
}
