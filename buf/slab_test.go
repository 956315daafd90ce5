package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSlab(t *testing.T, slabSize int, p Provider) *SlabBuffer {
	t.Helper()
	opts := []Option{WithSlabSize(slabSize)}
	if p != nil {
		opts = append(opts, WithProvider(p))
	}
	s, err := NewSlab(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestSlabBumpWithinSlab verifies small allocations bump through the
// first slab without growing.
func TestSlabBumpWithinSlab(t *testing.T) {
	p := NewCountingProvider(nil)
	s := newTestSlab(t, 4096, p)

	for i := 0; i < 4; i++ {
		_, err := s.AllocRaw(512)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, s.NumSlabs())
	assert.Equal(t, 0, s.NumCustomSlabs())
	assert.Equal(t, 2048, s.BytesUsed())
	assert.Equal(t, 1, p.Allocs(), "only the initial slab should be reserved")
}

// TestSlabGrowAppendsExactlyOneSlab verifies that a small request that
// does not fit creates exactly one new slab of the configured size and
// that the allocation begins at that slab's start.
func TestSlabGrowAppendsExactlyOneSlab(t *testing.T) {
	p := NewCountingProvider(nil)
	s := newTestSlab(t, 4096, p)

	_, err := s.AllocRaw(4000)
	require.NoError(t, err)

	got, err := s.AllocRaw(200) // < 4096/2, does not fit
	require.NoError(t, err)

	require.Equal(t, 2, s.NumSlabs())
	assert.Equal(t, 0, s.NumCustomSlabs())
	assert.Equal(t, addrOf(s.slabs[1]), addrOf(got), "allocation must begin at the new slab's start")
	assert.Equal(t, 4096, len(s.slabs[1]))
	assert.Equal(t, 2, p.Allocs())
}

// TestSlabCustomSlabExactSize verifies that a request of at least half
// the slab size that does not fit gets a dedicated region of exactly its
// size, leaving the slab chain and cursor untouched.
func TestSlabCustomSlabExactSize(t *testing.T) {
	s := newTestSlab(t, 4096, nil)

	_, err := s.AllocRaw(4000)
	require.NoError(t, err)
	usedBefore := s.off

	big, err := s.AllocRaw(2048) // >= 4096/2
	require.NoError(t, err)
	require.Len(t, big, 2048)

	assert.Equal(t, 1, s.NumSlabs(), "slab chain must be unchanged")
	assert.Equal(t, 1, s.NumCustomSlabs())
	assert.Equal(t, usedBefore, s.off, "cursor must be untouched by a custom slab")

	// The active slab keeps serving small requests.
	_, err = s.AllocRaw(32)
	require.NoError(t, err)
	assert.Equal(t, 1, s.NumSlabs())
}

// TestSlabOversizedRequest verifies a request larger than a whole slab
// goes to a custom slab of exactly its size.
func TestSlabOversizedRequest(t *testing.T) {
	s := newTestSlab(t, 4096, nil)

	big, err := s.AllocRaw(100_000)
	require.NoError(t, err)
	assert.Len(t, big, 100_000)
	assert.Equal(t, 1, s.NumSlabs())
	assert.Equal(t, 1, s.NumCustomSlabs())
}

// TestSlabRestoreFreesGrowth verifies restore frees every slab and custom
// slab created after the checkpoint - proven through an
// allocation-counting provider - and restores the chain lengths.
func TestSlabRestoreFreesGrowth(t *testing.T) {
	p := NewCountingProvider(nil)
	s := newTestSlab(t, 4096, p)

	reservedBefore := p.LiveBytes()
	cp := s.Save()

	for i := 0; i < 3; i++ { // forces two extra slabs
		_, err := s.AllocRaw(1500)
		require.NoError(t, err)
	}
	_, err := s.AllocRaw(3000) // custom slab
	require.NoError(t, err)
	require.Equal(t, 2, s.NumSlabs())
	require.Equal(t, 1, s.NumCustomSlabs())

	require.NoError(t, s.Restore(cp))
	assert.Equal(t, 1, s.NumSlabs())
	assert.Equal(t, 0, s.NumCustomSlabs())
	assert.Equal(t, 0, s.BytesUsed())
	assert.Equal(t, 2, p.Frees(), "one grown slab and one custom slab must be freed")
	assert.Equal(t, reservedBefore, p.LiveBytes(), "no region may leak past the restore")
}

// TestSlabScenarioHalfFillThenOversized runs the concrete scenario: two
// allocations of slabSize/2-1 nearly fill slab one, then a 100000-byte
// request (at least half of 16384) creates a custom slab; restoring the
// checkpoint empties custom slabs and leaves a single slab.
func TestSlabScenarioHalfFillThenOversized(t *testing.T) {
	s := newTestSlab(t, 16384, nil)
	cp := s.Save()

	half := 16384/2 - 1
	_, err := s.AllocRaw(half)
	require.NoError(t, err)
	_, err = s.AllocRaw(half)
	require.NoError(t, err)
	require.Equal(t, 1, s.NumSlabs(), "both near-half allocations fit in slab one")

	_, err = s.AllocRaw(100_000)
	require.NoError(t, err)
	require.Equal(t, 1, s.NumCustomSlabs())

	require.NoError(t, s.Restore(cp))
	assert.Equal(t, 1, s.NumSlabs())
	assert.Equal(t, 0, s.NumCustomSlabs())
}

// TestSlabReset verifies Reset returns the buffer to its
// just-constructed state, freeing everything but the first slab.
func TestSlabReset(t *testing.T) {
	p := NewCountingProvider(nil)
	s := newTestSlab(t, 4096, p)

	for i := 0; i < 5; i++ {
		_, err := s.AllocRaw(1500)
		require.NoError(t, err)
	}
	_, err := s.AllocRaw(5000)
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.Equal(t, 1, s.NumSlabs())
	assert.Equal(t, 0, s.NumCustomSlabs())
	assert.Equal(t, 0, s.BytesUsed())
	assert.Equal(t, 4096, p.LiveBytes())
}

// TestSlabClose verifies Close returns every region to the provider and
// later operations fail.
func TestSlabClose(t *testing.T) {
	p := NewCountingProvider(nil)
	s, err := NewSlab(WithSlabSize(4096), WithProvider(p))
	require.NoError(t, err)

	_, err = s.AllocRaw(3000)
	require.NoError(t, err)
	_, err = s.AllocRaw(3000)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, p.LiveBytes())
	assert.Equal(t, p.Allocs(), p.Frees())

	_, err = s.AllocRaw(1)
	require.ErrorIs(t, err, ErrBufferClosed)
	require.NoError(t, s.Close(), "double close is a no-op")
}

// TestSlabProviderExhausted verifies a provider refusal surfaces as
// ErrResourceExhausted.
func TestSlabProviderExhausted(t *testing.T) {
	p := NewCountingProvider(nil)
	p.SetLimit(4096)
	s := newTestSlab(t, 4096, p)

	_, err := s.AllocRaw(4000)
	require.NoError(t, err)
	_, err = s.AllocRaw(1000)
	require.ErrorIs(t, err, ErrResourceExhausted)
}

// TestSlabAllocatedSince verifies the escape-check span covers the active
// slab's tail, appended slabs, and appended custom slabs.
func TestSlabAllocatedSince(t *testing.T) {
	s := newTestSlab(t, 4096, nil)

	before, err := s.AllocRaw(64)
	require.NoError(t, err)
	cp := s.Save()

	inSlab, err := s.AllocRaw(64)
	require.NoError(t, err)
	grown, err := s.AllocRaw(4000) // custom slab (>= half)
	require.NoError(t, err)
	fresh, err := s.AllocRaw(1000) // still fits in slab one
	require.NoError(t, err)

	assert.False(t, s.AllocatedSince(cp, addrOf(before)))
	assert.True(t, s.AllocatedSince(cp, addrOf(inSlab)))
	assert.True(t, s.AllocatedSince(cp, addrOf(grown)))
	assert.True(t, s.AllocatedSince(cp, addrOf(fresh)))
}

// TestSlabMinimumSize verifies undersized slab configurations are
// clamped to the default.
func TestSlabMinimumSize(t *testing.T) {
	s := newTestSlab(t, 16, nil)
	assert.Equal(t, DefaultSlabSize, s.SlabSize())
}
