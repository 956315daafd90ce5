//go:build !unix

package region

import "fmt"

// osAlloc falls back to heap slices when anonymous mappings are not
// available. Free becomes a no-op and the garbage collector reclaims the
// region once the owning buffer drops it.
func osAlloc(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("region: invalid size %d", n)
	}
	return make([]byte, n), nil
}

func osFree(b []byte) error {
	return nil
}
