package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheckpointLIFO verifies checkpoints on one buffer must be restored
// innermost-first.
func TestCheckpointLIFO(t *testing.T) {
	s := newTestSlab(t, 4096, nil)

	cp1 := s.Save()
	_, err := s.AllocRaw(100)
	require.NoError(t, err)
	cp2 := s.Save()
	_, err = s.AllocRaw(100)
	require.NoError(t, err)

	require.ErrorIs(t, s.Restore(cp1), ErrCheckpointOrder, "outer before inner must fail")
	require.NoError(t, s.Restore(cp2))
	require.NoError(t, s.Restore(cp1))
	assert.Equal(t, 0, s.BytesUsed())
}

// TestCheckpointReuse verifies a checkpoint cannot be restored twice.
func TestCheckpointReuse(t *testing.T) {
	f, err := NewFixed(64)
	require.NoError(t, err)
	defer f.Close()

	cp := f.Save()
	_, err = f.AllocRaw(16)
	require.NoError(t, err)
	require.NoError(t, f.Restore(cp))
	require.ErrorIs(t, f.Restore(cp), ErrCheckpointOrder)
}

// TestCheckpointStaleAcrossSaves verifies a consumed checkpoint stays
// invalid even when the buffer later reaches the same nesting depth.
func TestCheckpointStaleAcrossSaves(t *testing.T) {
	f, err := NewFixed(64)
	require.NoError(t, err)
	defer f.Close()

	cp1 := f.Save()
	require.NoError(t, f.Restore(cp1))

	cp2 := f.Save()
	require.ErrorIs(t, f.Restore(cp1), ErrCheckpointOrder)
	require.NoError(t, f.Restore(cp2))
}

// TestCheckpointStaleAfterReset verifies a checkpoint saved before Reset
// stays invalid afterwards, even once new checkpoints bring the buffer
// back to the same nesting depth.
func TestCheckpointStaleAfterReset(t *testing.T) {
	f, err := NewFixed(64)
	require.NoError(t, err)
	defer f.Close()

	stale := f.Save()
	_, err = f.AllocRaw(16)
	require.NoError(t, err)
	require.NoError(t, f.Reset())

	fresh := f.Save()
	require.ErrorIs(t, f.Restore(stale), ErrCheckpointOrder)
	require.NoError(t, f.Restore(fresh))
}

// TestCheckpointStaleAfterResetGrownChain verifies restoring a stale
// pre-Reset checkpoint on a shrunken slab chain returns
// ErrCheckpointOrder instead of touching the chain.
func TestCheckpointStaleAfterResetGrownChain(t *testing.T) {
	s := newTestSlab(t, 4096, nil)

	for i := 0; i < 5; i++ { // grow the chain before the stale save
		_, err := s.AllocRaw(1500)
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.NumSlabs())

	stale := s.Save()
	require.NoError(t, s.Reset())
	require.Equal(t, 1, s.NumSlabs())

	fresh := s.Save()
	require.NotPanics(t, func() {
		require.ErrorIs(t, s.Restore(stale), ErrCheckpointOrder)
	})
	assert.Equal(t, 1, s.NumSlabs(), "stale restore must not touch the chain")
	require.NoError(t, s.Restore(fresh))
}

// TestCheckpointAcrossKinds verifies checkpoints cannot cross buffer
// kinds either.
func TestCheckpointAcrossKinds(t *testing.T) {
	f, err := NewFixed(64)
	require.NoError(t, err)
	defer f.Close()
	s := newTestSlab(t, 4096, nil)

	require.ErrorIs(t, s.Restore(f.Save()), ErrForeignCheckpoint)
	require.ErrorIs(t, f.Restore(s.Save()), ErrForeignCheckpoint)
}

// TestCheckpointNestingDepth verifies deep nesting unwinds cleanly in
// LIFO order regardless of how much each level allocated.
func TestCheckpointNestingDepth(t *testing.T) {
	s := newTestSlab(t, 4096, nil)

	const depth = 16
	cps := make([]Checkpoint, depth)
	used := make([]int, depth)
	for i := 0; i < depth; i++ {
		used[i] = s.BytesUsed()
		cps[i] = s.Save()
		_, err := s.AllocRaw(300)
		require.NoError(t, err)
	}
	for i := depth - 1; i >= 0; i-- {
		require.NoError(t, s.Restore(cps[i]))
		assert.Equal(t, used[i], s.BytesUsed())
	}
}
