// Package buf implements scoped bump allocation: fast, reusable buffers
// from which short-lived allocations are carved and then collectively
// released when a scope ends.
//
// # Overview
//
// A buffer hands out raw byte slices by advancing a cursor through memory
// it owns. Individual allocations are never freed; instead a caller
// snapshots the buffer with Save, allocates freely, and rewinds everything
// in one step with Restore. The scope package wraps that pattern so the
// rewind happens on every exit path, and the task package gives each
// goroutine its own lazily created default buffer.
//
// # Buffer Kinds
//
// FixedBuffer: a single contiguous region with a bump cursor
//
//   - Fixed capacity, never grows
//   - Exceeding capacity fails with ErrOutOfMemory
//   - Cheapest possible allocation: an aligned cursor bump
//
// SlabBuffer: a growable chain of fixed-size slabs
//
//   - Grows transparently by appending slabs instead of erroring
//   - Requests of at least half the slab size get a dedicated region
//     ("custom slab") so a mostly-empty slab is not abandoned for them
//   - Restore frees every slab and custom slab created after the
//     checkpoint, returning the memory to the host immediately
//
// # Checkpoints
//
// Save returns an opaque Checkpoint tied to the buffer it came from.
// Checkpoints on one buffer form a stack: they must be restored in strict
// last-in-first-out order, and a checkpoint cannot be restored twice.
// Violations fail fast with ErrForeignCheckpoint or ErrCheckpointOrder
// rather than silently rewinding to the wrong place.
//
// # Usage Example
//
//	b, err := buf.NewSlab()
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	cp := b.Save()
//	scratch, err := b.AllocRaw(4096)
//	if err != nil {
//	    return err
//	}
//	// ... use scratch ...
//	if err := b.Restore(cp); err != nil {
//	    return err
//	}
//
// # Memory Ownership
//
// Buffers own their storage exclusively and free it deterministically in
// Close; nothing is left to finalizers. Slices returned by AllocRaw are
// views into that storage: they are valid until the enclosing checkpoint
// is restored (or the buffer is reset or closed) and must never be freed
// or retained past that point. On platforms with anonymous mappings the
// storage lives outside the Go heap, so allocated memory must hold plain
// data only - no Go pointers.
//
// # Thread Safety
//
// Buffer instances are not thread-safe. Each buffer is meant to be used by
// a single goroutine at a time; the task package exists so independent
// goroutines never share one by accident. The scope package additionally
// rejects allocations that cross into a scope opened by another goroutine.
//
// # Related Packages
//
//   - github.com/joshuapare/bufkit/buf/scope: checkpoint/restore bracketing
//   - github.com/joshuapare/bufkit/buf/task: per-goroutine default buffers
//   - github.com/joshuapare/bufkit/alloc: typed views over raw allocations
//   - github.com/joshuapare/bufkit/metrics: Prometheus provider metrics
package buf
