// Package region provides platform-specific helpers for reserving raw
// memory regions outside the Go heap.
//
// On unix platforms regions are anonymous private mappings, so releasing a
// region hands the pages straight back to the kernel instead of waiting for
// the garbage collector. On other platforms regions fall back to ordinary
// heap slices and Free is a no-op.
//
// Regions are plain byte storage. They are never scanned by the garbage
// collector on the mmap path, so callers must not store Go pointers in them.
package region

// Alloc reserves a zeroed region of exactly n bytes.
// n must be positive.
func Alloc(n int) ([]byte, error) {
	return osAlloc(n)
}

// Free releases a region previously returned by Alloc. The slice must be
// the exact value Alloc returned, not a sub-slice of it.
func Free(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return osFree(b)
}
