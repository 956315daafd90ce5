package buf

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// DefaultSlabSize is the slab size used when none is configured
	// (1 MiB).
	DefaultSlabSize = 1 << 20

	// minSlabSize keeps the custom-slab threshold meaningful; slabs
	// smaller than this are pointless.
	minSlabSize = 512
)

// SlabBuffer is a bump allocator that grows transparently. Memory is a
// chain of equally sized slabs plus an out-of-band list of oversized
// regions. The cursor always lives in the newest slab.
//
// A request that does not fit in the active slab and is at least half the
// slab size gets a dedicated region of exactly its size, leaving the
// active slab (and its remaining headroom) in place for subsequent small
// requests. Smaller requests that do not fit start a fresh slab. The
// half-size threshold avoids burning a whole slab on one modestly large
// request while keeping dedicated regions rare.
//
// Not safe for concurrent use.
type SlabBuffer struct {
	provider Provider
	logger   log.Logger
	slabSize int

	slabs  [][]byte // never empty while the buffer is live
	custom [][]byte
	off    int // cursor within slabs[len(slabs)-1]

	closed bool
	saves  savestack
}

// NewSlab creates a SlabBuffer with its first slab already reserved.
func NewSlab(opts ...Option) (*SlabBuffer, error) {
	c := newConfig(opts)
	first, err := c.provider.Alloc(c.slabSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	}
	return &SlabBuffer{
		provider: c.provider,
		logger:   c.logger,
		slabSize: c.slabSize,
		slabs:    [][]byte{first},
	}, nil
}

func (s *SlabBuffer) active() []byte { return s.slabs[len(s.slabs)-1] }

// AllocRaw returns n bytes from the active slab, growing the buffer when
// it must. The only failure mode is the provider refusing to supply a new
// region, reported as ErrResourceExhausted.
func (s *SlabBuffer) AllocRaw(n int) ([]byte, error) {
	if s.closed {
		return nil, ErrBufferClosed
	}
	if n <= 0 {
		return nil, nil
	}
	act := s.active()
	start := alignUp(s.off)
	if start+n <= len(act) {
		s.off = start + n
		return act[start : s.off : s.off], nil
	}
	if n >= s.slabSize/2 {
		return s.allocCustom(n)
	}
	return s.allocNewSlab(n)
}

// allocCustom reserves a dedicated region of exactly n bytes. The cursor
// and active slab are left untouched.
func (s *SlabBuffer) allocCustom(n int) ([]byte, error) {
	r, err := s.provider.Alloc(n)
	if err != nil {
		return nil, fmt.Errorf("%w: custom slab of %d bytes: %w", ErrResourceExhausted, n, err)
	}
	s.custom = append(s.custom, r)
	level.Debug(s.logger).Log("msg", "custom slab reserved", "bytes", n, "custom_slabs", len(s.custom))
	return r, nil
}

// allocNewSlab appends a fresh slab and serves the request from its start.
func (s *SlabBuffer) allocNewSlab(n int) ([]byte, error) {
	slab, err := s.provider.Alloc(s.slabSize)
	if err != nil {
		return nil, fmt.Errorf("%w: slab of %d bytes: %w", ErrResourceExhausted, s.slabSize, err)
	}
	s.slabs = append(s.slabs, slab)
	s.off = n
	level.Debug(s.logger).Log("msg", "slab appended", "slab_bytes", s.slabSize, "slabs", len(s.slabs))
	return slab[0:n:n], nil
}

// Save snapshots the cursor and the slab chain lengths.
func (s *SlabBuffer) Save() Checkpoint {
	return Checkpoint{
		owner:  s,
		token:  s.saves.push(),
		off:    s.off,
		slabs:  len(s.slabs),
		custom: len(s.custom),
	}
}

// Restore rewinds to cp: every slab and custom slab appended after the
// checkpoint is released back to the provider, then the cursor is
// restored. cp must be the most recent outstanding checkpoint on this
// buffer.
func (s *SlabBuffer) Restore(cp Checkpoint) error {
	if s.closed {
		return ErrBufferClosed
	}
	if cp.owner != Buffer(s) {
		return ErrForeignCheckpoint
	}
	if err := s.saves.pop(cp.token); err != nil {
		return err
	}
	err := s.releaseTail(cp.slabs, cp.custom)
	s.off = cp.off
	return err
}

// releaseTail frees slabs[nSlabs:] and custom[nCustom:]. Free failures do
// not stop the sweep; the first error is reported after everything else
// has been handed back.
func (s *SlabBuffer) releaseTail(nSlabs, nCustom int) error {
	var errs []error
	for _, slab := range s.slabs[nSlabs:] {
		if err := s.provider.Free(slab); err != nil {
			errs = append(errs, err)
		}
	}
	s.slabs = s.slabs[:nSlabs]
	for _, r := range s.custom[nCustom:] {
		if err := s.provider.Free(r); err != nil {
			errs = append(errs, err)
		}
	}
	s.custom = s.custom[:nCustom]
	return errors.Join(errs...)
}

// Reset rewinds to the just-constructed state: the first slab is kept,
// everything else is released, and outstanding checkpoints are discarded.
func (s *SlabBuffer) Reset() error {
	if s.closed {
		return ErrBufferClosed
	}
	err := s.releaseTail(1, 0)
	s.off = 0
	s.saves.clear()
	return err
}

// Close releases every slab and custom slab and marks the buffer
// unusable.
func (s *SlabBuffer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.releaseTail(0, 0)
	s.saves.clear()
	return err
}

// SlabSize returns the configured slab size in bytes.
func (s *SlabBuffer) SlabSize() int { return s.slabSize }

// NumSlabs returns the current length of the slab chain.
func (s *SlabBuffer) NumSlabs() int { return len(s.slabs) }

// NumCustomSlabs returns the number of live dedicated regions.
func (s *SlabBuffer) NumCustomSlabs() int { return len(s.custom) }

// BytesUsed returns the bytes consumed across full slabs, the active
// slab's cursor, and custom slabs.
func (s *SlabBuffer) BytesUsed() int {
	if s.closed {
		return 0
	}
	used := (len(s.slabs) - 1) * s.slabSize
	used += s.off
	for _, r := range s.custom {
		used += len(r)
	}
	return used
}

// BytesReserved returns the total bytes held from the provider.
func (s *SlabBuffer) BytesReserved() int {
	total := 0
	for _, slab := range s.slabs {
		total += len(slab)
	}
	for _, r := range s.custom {
		total += len(r)
	}
	return total
}

// AllocatedSince reports whether address p lies in memory allocated after
// cp was saved: the tail of the slab that was active at save time, any
// slab appended since, or any custom slab appended since.
func (s *SlabBuffer) AllocatedSince(cp Checkpoint, p uintptr) bool {
	if cp.owner != Buffer(s) || s.closed {
		return false
	}
	for i, slab := range s.slabs {
		lo, hi := 0, len(slab)
		switch {
		case i < cp.slabs-1:
			continue // fully allocated before the checkpoint
		case i == cp.slabs-1:
			lo = cp.off
			if i == len(s.slabs)-1 {
				hi = s.off
			}
		case i == len(s.slabs)-1:
			hi = s.off
		}
		if lo >= hi {
			continue
		}
		base := uintptr(unsafe.Pointer(&slab[0]))
		if p >= base+uintptr(lo) && p < base+uintptr(hi) {
			return true
		}
	}
	for _, r := range s.custom[cp.custom:] {
		if len(r) == 0 {
			continue
		}
		base := uintptr(unsafe.Pointer(&r[0]))
		if p >= base && p < base+uintptr(len(r)) {
			return true
		}
	}
	return false
}

// Summary reports the buffer's usage for diagnostics.
func (s *SlabBuffer) Summary() Summary {
	return Summary{
		Kind:          "slab",
		BytesUsed:     s.BytesUsed(),
		BytesReserved: s.BytesReserved(),
		Slabs:         len(s.slabs),
		CustomSlabs:   len(s.custom),
	}
}

// String implements fmt.Stringer.
func (s *SlabBuffer) String() string { return s.Summary().String() }

var (
	_ Buffer     = (*SlabBuffer)(nil)
	_ Resetter   = (*SlabBuffer)(nil)
	_ Spanner    = (*SlabBuffer)(nil)
	_ Summarizer = (*SlabBuffer)(nil)
)
