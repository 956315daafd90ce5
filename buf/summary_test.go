package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSummaryFixed checks the rendered form of a fixed buffer summary.
func TestSummaryFixed(t *testing.T) {
	f, err := NewFixed(1024)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.AllocRaw(100)
	require.NoError(t, err)

	got := f.String()
	assert.Contains(t, got, "fixed buffer")
	assert.Contains(t, got, "100 B used")
	assert.Contains(t, got, "1.0 KiB reserved")
}

// TestSummarySlab checks slab summaries report chain lengths and grouped
// byte counts.
func TestSummarySlab(t *testing.T) {
	s := newTestSlab(t, 4096, nil)

	_, err := s.AllocRaw(4000)
	require.NoError(t, err)
	_, err = s.AllocRaw(1000) // second slab
	require.NoError(t, err)

	got := s.String()
	assert.Contains(t, got, "slab buffer")
	assert.Contains(t, got, "2 slabs")
	assert.Contains(t, got, "0 custom")
	assert.Contains(t, got, "5,096 bytes")
}
