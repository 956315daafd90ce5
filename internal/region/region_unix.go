//go:build unix

package region

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// osAlloc reserves an anonymous private mapping of n bytes. The kernel
// rounds the reservation up to whole pages internally; the returned slice
// is trimmed to exactly n so the mapping length can be recovered in osFree.
func osAlloc(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("region: invalid size %d", n)
	}
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("region: mmap %d bytes: %w", n, err)
	}
	return b[:n:n], nil
}

func osFree(b []byte) error {
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	if err != nil {
		return fmt.Errorf("region: munmap: %w", err)
	}
	return nil
}
