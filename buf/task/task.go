// Package task gives each goroutine its own default buffers, created
// lazily on first use, so independent goroutines never share a buffer by
// accident.
//
// Identity comes from the calling goroutine, which makes every lookup cost
// a stack-header parse (about a microsecond). That is the price of the
// convenience path; code on a hot path should take a buffer once and pass
// it explicitly.
//
// Go has no goroutine-exit hook, so a goroutine that used a default buffer
// should call Release before it returns if it wants the memory back
// eagerly; otherwise the entry lives until the process exits. Bindings
// made with With are purely dynamic: they cover the current goroutine for
// the duration of the body and are not inherited by goroutines spawned
// inside it.
package task

import (
	"os"
	"sync"

	"github.com/c2h5oh/datasize"

	"github.com/joshuapare/bufkit/buf"
	"github.com/joshuapare/bufkit/internal/goid"
)

var (
	mu       sync.Mutex
	slabs    = map[uint64]*buf.SlabBuffer{}
	fixeds   = map[uint64]*buf.FixedBuffer{}
	bindings = map[uint64][]buf.Buffer{}

	fixedCapacity = buf.DefaultFixedCapacity
	slabSize      = buf.DefaultSlabSize
)

// Environment overrides for the default sizes, parsed as byte sizes
// ("256KB", "4MiB", plain integers).
const (
	envFixedCapacity = "BUFKIT_FIXED_CAPACITY"
	envSlabSize      = "BUFKIT_SLAB_SIZE"
)

func init() {
	if v := os.Getenv(envFixedCapacity); v != "" {
		var sz datasize.ByteSize
		if err := sz.UnmarshalText([]byte(v)); err == nil && sz > 0 {
			fixedCapacity = int(sz.Bytes())
		}
	}
	if v := os.Getenv(envSlabSize); v != "" {
		var sz datasize.ByteSize
		if err := sz.UnmarshalText([]byte(v)); err == nil && sz > 0 {
			slabSize = int(sz.Bytes())
		}
	}
}

// SetDefaults overrides the sizes used for defaults created after the
// call. Non-positive arguments leave the corresponding size unchanged.
// Already-created defaults keep their sizes.
func SetDefaults(fixedCap, slab int) {
	mu.Lock()
	defer mu.Unlock()
	if fixedCap > 0 {
		fixedCapacity = fixedCap
	}
	if slab > 0 {
		slabSize = slab
	}
}

// Default returns the calling goroutine's active buffer: the innermost
// With binding if one is in effect, otherwise the goroutine's lazily
// created slab default.
func Default() buf.Buffer {
	id := goid.ID()
	mu.Lock()
	if stack := bindings[id]; len(stack) > 0 {
		b := stack[len(stack)-1]
		mu.Unlock()
		return b
	}
	mu.Unlock()
	return slabFor(id)
}

// Slab returns the calling goroutine's default SlabBuffer, creating it on
// first use. Provider failure during creation panics: the host is out of
// memory and there is no caller-side recovery on this path (the explicit
// constructors return errors instead).
func Slab() *buf.SlabBuffer {
	return slabFor(goid.ID())
}

func slabFor(id uint64) *buf.SlabBuffer {
	mu.Lock()
	defer mu.Unlock()
	if b, ok := slabs[id]; ok {
		return b
	}
	b, err := buf.NewSlab(buf.WithSlabSize(slabSize))
	if err != nil {
		panic("task: cannot create default slab buffer: " + err.Error())
	}
	slabs[id] = b
	return b
}

// Fixed returns the calling goroutine's default FixedBuffer, creating it
// on first use. Panics on provider failure, like Slab.
func Fixed() *buf.FixedBuffer {
	id := goid.ID()
	mu.Lock()
	defer mu.Unlock()
	if b, ok := fixeds[id]; ok {
		return b
	}
	b, err := buf.NewFixed(fixedCapacity)
	if err != nil {
		panic("task: cannot create default fixed buffer: " + err.Error())
	}
	fixeds[id] = b
	return b
}

// With makes Default return b for the calling goroutine for the duration
// of fn, then restores the previous binding unconditionally - on error and
// panic as well as normal return.
func With(b buf.Buffer, fn func() error) error {
	id := goid.ID()
	mu.Lock()
	bindings[id] = append(bindings[id], b)
	mu.Unlock()
	defer func() {
		mu.Lock()
		stack := bindings[id]
		if len(stack) <= 1 {
			delete(bindings, id)
		} else {
			bindings[id] = stack[:len(stack)-1]
		}
		mu.Unlock()
	}()
	return fn()
}

// Release closes and forgets the calling goroutine's default buffers and
// drops any of its leftover With bindings. Call it before a goroutine that
// used defaults returns.
func Release() error {
	id := goid.ID()
	mu.Lock()
	sb := slabs[id]
	fb := fixeds[id]
	delete(slabs, id)
	delete(fixeds, id)
	delete(bindings, id)
	mu.Unlock()

	var err error
	if sb != nil {
		err = sb.Close()
	}
	if fb != nil {
		if cerr := fb.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
