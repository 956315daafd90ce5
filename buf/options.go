package buf

import (
	"github.com/go-kit/log"
)

// Option configures a buffer at construction time.
type Option func(*config)

type config struct {
	provider Provider
	slabSize int
	logger   log.Logger
}

func newConfig(opts []Option) config {
	c := config{
		provider: SystemProvider(),
		slabSize: DefaultSlabSize,
		logger:   log.NewNopLogger(),
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// WithProvider makes the buffer reserve and release regions through p
// instead of the system provider.
func WithProvider(p Provider) Option {
	return func(c *config) {
		if p != nil {
			c.provider = p
		}
	}
}

// WithSlabSize sets the slab size in bytes for a SlabBuffer. Values below
// the minimum are clamped. Ignored by FixedBuffer.
func WithSlabSize(n int) Option {
	return func(c *config) {
		if n >= minSlabSize {
			c.slabSize = n
		}
	}
}

// WithLogger makes a SlabBuffer emit debug events when it appends slabs or
// custom slabs. The library is silent by default.
func WithLogger(l log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
