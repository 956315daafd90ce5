package buf

import "unsafe"

// addrOf returns the address of a slice's first byte.
func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
