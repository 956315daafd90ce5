package alloc

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/joshuapare/bufkit/buf"
)

// Descriptor describes one output to pre-allocate: an element type and its
// dimensions. It is the unit of the shape-descriptor boundary - an
// external collaborator inspects a callable and its arguments and answers
// with one descriptor per output.
type Descriptor struct {
	Elem reflect.Type
	Dims []int
}

// Shaper is the external collaborator: given the arguments a callable
// will receive, it returns the descriptors of the outputs the callable
// produces. Implementations live outside this module.
type Shaper interface {
	OutputShapes(args ...any) ([]Descriptor, error)
}

// Output is an untyped pre-allocated output: zeroed buffer memory plus
// the descriptor it was allocated for. Callables write results through
// Bytes (or reinterpret it via unsafe.Slice).
type Output struct {
	Bytes []byte
	Elem  reflect.Type
	Dims  []int
}

// Len returns the output's element count.
func (o Output) Len() int {
	n := 1
	for _, d := range o.Dims {
		n *= d
	}
	return n
}

// DataPointer returns the address of the output's first byte, or zero.
func (o Output) DataPointer() uintptr {
	if len(o.Bytes) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&o.Bytes[0]))
}

// AllocOutput allocates zeroed memory for one descriptor from b. The
// element type must be plain data.
func AllocOutput(b buf.Buffer, d Descriptor) (Output, error) {
	if d.Elem == nil {
		return Output{}, fmt.Errorf("%w: nil element type", ErrBadShape)
	}
	if !plain(d.Elem) {
		return Output{}, fmt.Errorf("%w: %s", ErrIndirectType, d.Elem)
	}
	total, err := byteSize(int(d.Elem.Size()), d.Dims...)
	if err != nil {
		return Output{}, err
	}
	raw, err := b.AllocRaw(total)
	if err != nil {
		return Output{}, err
	}
	clear(raw)
	dims := make([]int, len(d.Dims))
	copy(dims, d.Dims)
	return Output{Bytes: raw, Elem: d.Elem, Dims: dims}, nil
}

// Shaped asks the collaborator for the callable's output shapes,
// pre-allocates each output from b, and invokes fn with the outputs and
// the original arguments so it can write results in place.
func Shaped(b buf.Buffer, s Shaper, fn func(outs []Output, args ...any) error, args ...any) error {
	descs, err := s.OutputShapes(args...)
	if err != nil {
		return fmt.Errorf("alloc: output shapes: %w", err)
	}
	outs := make([]Output, 0, len(descs))
	for _, d := range descs {
		out, err := AllocOutput(b, d)
		if err != nil {
			return err
		}
		outs = append(outs, out)
	}
	return fn(outs, args...)
}
