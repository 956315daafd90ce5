// Package alloc layers typed allocation over the raw byte allocation the
// buf package provides: "allocate n elements of T from buffer b",
// returning a pointer, slice, or multi-dimensional view into
// buffer-owned memory.
//
// Element types must be plain data. Buffer storage may live outside the
// Go heap where the garbage collector never scans it, so a type carrying
// pointers, maps, channels, slices, strings, interfaces, or functions is
// rejected with ErrIndirectType rather than silently producing memory the
// collector cannot see.
//
// Everything returned here is a non-owning view. Validity is governed
// entirely by the enclosing scope or checkpoint; nothing in this package
// frees memory.
package alloc

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/joshuapare/bufkit/buf"
)

var (
	// ErrIndirectType indicates an element type that embeds pointers or
	// other indirection and therefore cannot live in buffer memory.
	ErrIndirectType = errors.New("alloc: element type contains indirection")

	// ErrBadShape indicates a negative dimension or a size that
	// overflows.
	ErrBadShape = errors.New("alloc: invalid dimensions")
)

// plainCache memoizes the plain-data check per element type.
var plainCache sync.Map // reflect.Type -> bool

// plain reports whether t contains no pointer-shaped fields at any depth.
func plain(t reflect.Type) bool {
	if v, ok := plainCache.Load(t); ok {
		return v.(bool)
	}
	ok := plainWalk(t)
	plainCache.Store(t, ok)
	return ok
}

func plainWalk(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return plainWalk(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !plainWalk(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func checkElem[T any]() (reflect.Type, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if !plain(t) {
		return nil, fmt.Errorf("%w: %s", ErrIndirectType, t)
	}
	return t, nil
}

// New allocates one zeroed T from b.
func New[T any](b buf.Buffer) (*T, error) {
	if _, err := checkElem[T](); err != nil {
		return nil, err
	}
	size := int(unsafe.Sizeof(*new(T)))
	if size == 0 {
		return new(T), nil
	}
	raw, err := b.AllocRaw(size)
	if err != nil {
		return nil, err
	}
	clear(raw)
	return (*T)(unsafe.Pointer(&raw[0])), nil
}

// Slice allocates n zeroed elements of T from b. n <= 0 returns nil.
func Slice[T any](b buf.Buffer, n int) ([]T, error) {
	s, err := SliceUninitialized[T](b, n)
	if err != nil || s == nil {
		return s, err
	}
	clear(s)
	return s, nil
}

// SliceUninitialized is Slice without the zeroing pass. The elements hold
// whatever the memory held before; callers must initialize every element
// they read.
func SliceUninitialized[T any](b buf.Buffer, n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	if _, err := checkElem[T](); err != nil {
		return nil, err
	}
	elem := int(unsafe.Sizeof(*new(T)))
	if elem == 0 {
		return make([]T, n), nil
	}
	total, err := byteSize(elem, n)
	if err != nil {
		return nil, err
	}
	raw, err := b.AllocRaw(total)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), n), nil
}

// Bytes allocates n raw bytes from b. It is the variant for callers that
// want memory without a typed view.
func Bytes(b buf.Buffer, n int) ([]byte, error) {
	return b.AllocRaw(n)
}

// byteSize multiplies element size by counts with overflow checking.
func byteSize(elem int, counts ...int) (int, error) {
	total := elem
	for _, n := range counts {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrBadShape, n)
		}
		if n != 0 && total > int(^uint(0)>>1)/n {
			return 0, fmt.Errorf("%w: size overflows", ErrBadShape)
		}
		total *= n
	}
	return total, nil
}
