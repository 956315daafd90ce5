// Package goid derives a stable identity for the calling goroutine.
//
// The runtime does not expose goroutine IDs, so ID parses the header line
// of the goroutine's stack trace ("goroutine 123 [running]:"). That costs
// on the order of a microsecond per call, which is why callers that care
// about the fast path pass buffers explicitly instead of going through the
// per-task registry on every allocation.
package goid

import (
	"fmt"
	"runtime"
)

// ID returns the calling goroutine's ID. IDs are unique among live
// goroutines and are never reused while the goroutine is running.
func ID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Header is "goroutine <id> [<state>]:".
	const prefix = len("goroutine ")
	if n <= prefix {
		panic(fmt.Sprintf("goid: short stack header %q", buf[:n]))
	}
	var id uint64
	for _, c := range buf[prefix:n] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
