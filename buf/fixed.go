package buf

import (
	"fmt"
	"unsafe"
)

// DefaultFixedCapacity is the capacity used when NewFixed is given a
// non-positive capacity (128 KiB).
const DefaultFixedCapacity = 128 << 10

// FixedBuffer is a bump allocator over a single contiguous region. It
// never grows: an allocation that does not fit fails with ErrOutOfMemory
// and leaves the buffer untouched. Not safe for concurrent use.
type FixedBuffer struct {
	provider Provider
	storage  []byte
	off      int
	adopted  bool
	closed   bool
	saves    savestack
}

// NewFixed creates a FixedBuffer owning a fresh region of capacity bytes.
// capacity <= 0 selects DefaultFixedCapacity.
func NewFixed(capacity int, opts ...Option) (*FixedBuffer, error) {
	if capacity <= 0 {
		capacity = DefaultFixedCapacity
	}
	c := newConfig(opts)
	storage, err := c.provider.Alloc(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}
	return &FixedBuffer{provider: c.provider, storage: storage}, nil
}

// NewFixedOver creates a FixedBuffer that bumps through storage supplied
// by the caller. The buffer does not own storage and Close will not free
// it.
func NewFixedOver(storage []byte) *FixedBuffer {
	return &FixedBuffer{storage: storage, adopted: true}
}

// AllocRaw returns n bytes starting at the next 8-aligned cursor position.
// A request that exceeds the remaining capacity fails with ErrOutOfMemory
// and does not move the cursor.
func (f *FixedBuffer) AllocRaw(n int) ([]byte, error) {
	if f.closed {
		return nil, ErrBufferClosed
	}
	if n <= 0 {
		return nil, nil
	}
	start := alignUp(f.off)
	if start+n > len(f.storage) {
		return nil, fmt.Errorf("buf: fixed alloc of %d bytes with %d free: %w",
			n, len(f.storage)-start, ErrOutOfMemory)
	}
	f.off = start + n
	return f.storage[start:f.off:f.off], nil
}

// Save snapshots the cursor.
func (f *FixedBuffer) Save() Checkpoint {
	return Checkpoint{owner: f, token: f.saves.push(), off: f.off}
}

// Restore rewinds the cursor to cp. cp must be the most recent outstanding
// checkpoint on this buffer.
func (f *FixedBuffer) Restore(cp Checkpoint) error {
	if f.closed {
		return ErrBufferClosed
	}
	if cp.owner != Buffer(f) {
		return ErrForeignCheckpoint
	}
	if err := f.saves.pop(cp.token); err != nil {
		return err
	}
	f.off = cp.off
	return nil
}

// Reset rewinds the cursor to zero and discards any outstanding
// checkpoints; restoring one of them afterwards fails with
// ErrCheckpointOrder. Storage is kept as-is.
func (f *FixedBuffer) Reset() error {
	if f.closed {
		return ErrBufferClosed
	}
	f.off = 0
	f.saves.clear()
	return nil
}

// Close releases the buffer's storage (unless it was adopted via
// NewFixedOver) and marks the buffer unusable.
func (f *FixedBuffer) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	storage := f.storage
	f.storage = nil
	f.saves.clear()
	if f.adopted || f.provider == nil {
		return nil
	}
	return f.provider.Free(storage)
}

// BytesUsed returns the current cursor position.
func (f *FixedBuffer) BytesUsed() int { return f.off }

// Capacity returns the total storage size in bytes.
func (f *FixedBuffer) Capacity() int { return len(f.storage) }

// AllocatedSince reports whether address p lies in the part of the buffer
// allocated after cp was saved.
func (f *FixedBuffer) AllocatedSince(cp Checkpoint, p uintptr) bool {
	if cp.owner != Buffer(f) || len(f.storage) == 0 {
		return false
	}
	base := uintptr(unsafe.Pointer(&f.storage[0]))
	return p >= base+uintptr(cp.off) && p < base+uintptr(f.off)
}

// Summary reports the buffer's usage for diagnostics.
func (f *FixedBuffer) Summary() Summary {
	return Summary{
		Kind:          "fixed",
		BytesUsed:     f.off,
		BytesReserved: len(f.storage),
	}
}

// String implements fmt.Stringer.
func (f *FixedBuffer) String() string { return f.Summary().String() }

var (
	_ Buffer     = (*FixedBuffer)(nil)
	_ Resetter   = (*FixedBuffer)(nil)
	_ Spanner    = (*FixedBuffer)(nil)
	_ Summarizer = (*FixedBuffer)(nil)
)
