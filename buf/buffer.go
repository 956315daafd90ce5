package buf

// Buffer is the capability every buffer kind implements. The scope and
// alloc packages work uniformly over any Buffer, including user-supplied
// kinds, provided the three operations honor the contracts below.
type Buffer interface {
	// AllocRaw returns n bytes carved from the buffer. The slice aliases
	// buffer-owned storage and stays valid until the innermost checkpoint
	// open at allocation time is restored. n <= 0 returns (nil, nil).
	AllocRaw(n int) ([]byte, error)

	// Save snapshots the buffer's mutable state. Checkpoints on one
	// buffer must be restored in strict LIFO order.
	Save() Checkpoint

	// Restore rewinds the buffer to cp, invalidating and reclaiming
	// everything allocated since. cp must come from this buffer and be
	// the most recent unsaved checkpoint, else Restore fails fast
	// without mutating the buffer.
	Restore(cp Checkpoint) error
}

// Resetter is implemented by buffers that can rewind to their
// just-constructed state in one step.
type Resetter interface {
	Reset() error
}

// Spanner is implemented by buffers that can tell whether an address was
// allocated after a given checkpoint. The scope package uses it for its
// escape check; buffers without it simply skip that check.
type Spanner interface {
	AllocatedSince(cp Checkpoint, p uintptr) bool
}

// Summarizer is implemented by buffers that can report usage for
// diagnostics.
type Summarizer interface {
	Summary() Summary
}

// Checkpoint is an opaque snapshot of a buffer's mutable state. It holds a
// non-owning reference to its source buffer plus whatever state that kind
// needs to rewind. A checkpoint is consumed by Restore and must not be
// reused afterwards.
type Checkpoint struct {
	owner Buffer
	token uint64

	// FixedBuffer: cursor. SlabBuffer: cursor within the active slab.
	off int

	// SlabBuffer only.
	slabs  int
	custom int
}

// savestack tracks outstanding checkpoints on one buffer. Tokens are
// monotonically increasing per buffer, so a stale checkpoint can never
// match the top of the stack even after the buffer reaches the same depth
// again.
type savestack struct {
	seq  uint64
	live []uint64
}

func (s *savestack) push() uint64 {
	s.seq++
	s.live = append(s.live, s.seq)
	return s.seq
}

// pop validates that token is the most recent outstanding save and
// consumes it.
func (s *savestack) pop(token uint64) error {
	if n := len(s.live); n == 0 || s.live[n-1] != token {
		return ErrCheckpointOrder
	}
	s.live = s.live[:len(s.live)-1]
	return nil
}

// clear discards the outstanding saves. seq stays monotone so tokens
// handed out before the clear can never alias tokens handed out after it;
// a stale checkpoint must fail pop, not silently match a new save.
func (s *savestack) clear() {
	s.live = s.live[:0]
}

// alignUp rounds off up to the next multiple of 8. Every allocation starts
// 8-byte aligned so typed views over the memory are well-formed for any
// plain-data element type.
func alignUp(off int) int {
	return (off + 7) &^ 7
}
