package alloc

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/bufkit/buf"
)

// View is a non-owning, multi-dimensional typed view over buffer memory,
// laid out row-major. Its validity is governed entirely by the enclosing
// scope; the view itself never frees anything.
type View[T any] struct {
	data []T
	dims []int
}

// Make allocates a zeroed view of the given dimensions from b.
// Make[float64](b, 3, 4) is a 3x4 matrix. No dimensions make a scalar
// view of one element.
func Make[T any](b buf.Buffer, dims ...int) (View[T], error) {
	n, err := elemCount(dims)
	if err != nil {
		return View[T]{}, err
	}
	data, err := Slice[T](b, n)
	if err != nil {
		return View[T]{}, err
	}
	d := make([]int, len(dims))
	copy(d, dims)
	return View[T]{data: data, dims: d}, nil
}

func elemCount(dims []int) (int, error) {
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension %d", ErrBadShape, d)
		}
		if d != 0 && n > int(^uint(0)>>1)/d {
			return 0, fmt.Errorf("%w: size overflows", ErrBadShape)
		}
		n *= d
	}
	return n, nil
}

// Data returns the flat backing slice.
func (v View[T]) Data() []T { return v.data }

// Dims returns a copy of the view's dimensions.
func (v View[T]) Dims() []int {
	d := make([]int, len(v.dims))
	copy(d, v.dims)
	return d
}

// Rank returns the number of dimensions.
func (v View[T]) Rank() int { return len(v.dims) }

// Len returns the total element count.
func (v View[T]) Len() int { return len(v.data) }

// At returns a pointer to the element at the given indices, row-major.
// The number of indices must equal the rank; out-of-range indices panic
// the way slice indexing does.
func (v View[T]) At(ix ...int) *T {
	if len(ix) != len(v.dims) {
		panic(fmt.Sprintf("alloc: %d indices into rank-%d view", len(ix), len(v.dims)))
	}
	flat := 0
	for i, x := range ix {
		if x < 0 || x >= v.dims[i] {
			panic(fmt.Sprintf("alloc: index %d out of range [0,%d) in dimension %d", x, v.dims[i], i))
		}
		flat = flat*v.dims[i] + x
	}
	return &v.data[flat]
}

// DataPointer returns the address of the first element, or zero for an
// empty view. The scope package uses it to detect views escaping their
// scope.
func (v View[T]) DataPointer() uintptr {
	if len(v.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&v.data[0]))
}
