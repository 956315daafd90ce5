// Package scope brackets a unit of work with checkpoint save/restore so
// every allocation made inside is reclaimed when the work exits - whether
// it returns normally, returns an error, panics, or leaves via
// runtime.Goexit. Go's defer runs on all of those paths, so unlike hosts
// that must reject early returns outright, no control-flow construct needs
// to be forbidden here.
//
// Scopes may nest freely on the same or different buffers; checkpoints
// form a stack per buffer and an inner scope's restore never disturbs an
// outer scope's.
//
// Two misuse guards are enforced at runtime. Allocations through a *Scope
// must come from the goroutine that opened it; anything else fails with
// ErrCrossTask instead of racing the buffer's cursor. And a *Scope that
// has already exited rejects further use with ErrScopeExited.
//
// DoValue additionally performs a best-effort escape check: if the body's
// result is a byte slice or typed view backed by memory the restore is
// about to invalidate, it is suppressed and ErrEscapedView returned.
// Views buried inside other data structures are not detected; the check is
// a safety net, not a substitute for caller discipline. Disable it
// globally with SetEscapeCheck(false).
package scope

import (
	"errors"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/bufkit/buf"
	"github.com/joshuapare/bufkit/internal/goid"
)

var (
	// ErrCrossTask indicates an allocation from a goroutine that does not
	// own the scope.
	ErrCrossTask = errors.New("scope: allocation from a goroutine that does not own the scope")

	// ErrScopeExited indicates use of a scope after it exited.
	ErrScopeExited = errors.New("scope: use after scope exit")

	// ErrEscapedView indicates a scope body returned a view backed by
	// memory the scope's restore invalidates.
	ErrEscapedView = errors.New("scope: result retains memory reclaimed at scope exit")
)

var escapeCheck atomic.Bool

func init() { escapeCheck.Store(true) }

// SetEscapeCheck enables or disables the DoValue escape check globally.
func SetEscapeCheck(on bool) { escapeCheck.Store(on) }

// EscapeCheckEnabled reports whether the escape check is active.
func EscapeCheckEnabled() bool { return escapeCheck.Load() }

// Scope is the handle a body allocates through. It implements buf.Buffer,
// so the typed alloc package works on it directly, and it adds the
// ownership guards described in the package comment.
type Scope struct {
	b      buf.Buffer
	cp     buf.Checkpoint
	owner  uint64
	exited atomic.Bool
}

// Do saves a checkpoint on b, runs fn, and restores the checkpoint on
// every exit path. A restore failure is joined onto fn's error.
func Do(b buf.Buffer, fn func(*Scope) error) (err error) {
	s := &Scope{b: b, cp: b.Save(), owner: goid.ID()}
	defer func() {
		s.exited.Store(true)
		if rerr := s.b.Restore(s.cp); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn(s)
}

// DoValue is Do for bodies that produce a value. Before restoring, the
// result is checked against the memory about to be reclaimed; see the
// package comment. On any error the zero value is returned.
func DoValue[T any](b buf.Buffer, fn func(*Scope) (T, error)) (val T, err error) {
	s := &Scope{b: b, cp: b.Save(), owner: goid.ID()}
	restored := false
	defer func() {
		s.exited.Store(true)
		if !restored {
			// Panic or Goexit path: restore without the escape check.
			if rerr := s.b.Restore(s.cp); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}
	}()

	val, err = fn(s)
	s.exited.Store(true)

	if err == nil && escapeCheck.Load() && escapes(b, s.cp, any(val)) {
		var zero T
		val, err = zero, ErrEscapedView
	}

	restored = true
	if rerr := s.b.Restore(s.cp); rerr != nil {
		var zero T
		val, err = zero, errors.Join(err, rerr)
	}
	if err != nil {
		var zero T
		val = zero
	}
	return val, err
}

// AllocRaw allocates from the scope's buffer after checking that the scope
// is still open and that the caller is the goroutine that opened it.
func (s *Scope) AllocRaw(n int) ([]byte, error) {
	if s.exited.Load() {
		return nil, ErrScopeExited
	}
	if goid.ID() != s.owner {
		return nil, ErrCrossTask
	}
	return s.b.AllocRaw(n)
}

// Save delegates to the underlying buffer, so scopes nest on the same
// buffer through the normal checkpoint stack. Save panics if the scope has
// exited: handing out a checkpoint that can never be restored in order
// would only corrupt the stack later.
func (s *Scope) Save() buf.Checkpoint {
	if s.exited.Load() {
		panic("scope: save on exited scope")
	}
	return s.b.Save()
}

// Restore delegates to the underlying buffer.
func (s *Scope) Restore(cp buf.Checkpoint) error {
	if s.exited.Load() {
		return ErrScopeExited
	}
	return s.b.Restore(cp)
}

// Buffer returns the buffer this scope allocates from.
func (s *Scope) Buffer() buf.Buffer { return s.b }

var _ buf.Buffer = (*Scope)(nil)

// viewer is implemented by typed views (see the alloc package) so the
// escape check can find their backing address without depending on the
// concrete type.
type viewer interface {
	DataPointer() uintptr
}

// escapes reports whether v is a view backed by memory allocated on b
// after cp. Only direct []byte results and viewer implementations are
// inspected.
func escapes(b buf.Buffer, cp buf.Checkpoint, v any) bool {
	sp, ok := b.(buf.Spanner)
	if !ok {
		return false
	}
	var p uintptr
	switch x := v.(type) {
	case nil:
		return false
	case viewer:
		p = x.DataPointer()
	case []byte:
		if len(x) == 0 {
			return false
		}
		p = uintptr(unsafe.Pointer(&x[0]))
	default:
		return false
	}
	return p != 0 && sp.AllocatedSince(cp, p)
}
