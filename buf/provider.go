package buf

import (
	"fmt"
	"sync"

	"github.com/joshuapare/bufkit/internal/region"
)

// Provider supplies and releases raw memory regions. It is the seam
// between buffers and the host's allocate/free primitives, and the hook
// point for instrumentation (see the metrics package) and for tests that
// count allocations.
//
// Free must accept the exact slice a previous Alloc returned. Providers
// must be safe for use by multiple buffers concurrently; the default
// provider is stateless and trivially is.
type Provider interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte) error
}

// SystemProvider returns the default provider: anonymous memory mappings
// where the platform supports them, heap slices elsewhere.
func SystemProvider() Provider {
	return systemProvider{}
}

type systemProvider struct{}

func (systemProvider) Alloc(n int) ([]byte, error) { return region.Alloc(n) }
func (systemProvider) Free(b []byte) error         { return region.Free(b) }

// CountingProvider wraps a Provider and counts regions and bytes as they
// are reserved and released. Tests use it to prove buffers free every
// region a restore should reclaim; it is exported because the same
// accounting is handy in production soak tests.
//
// The zero Limit means unlimited. A positive Limit makes Alloc fail once
// live bytes would exceed it, which is how tests exercise host-exhaustion
// paths without actually exhausting the host.
type CountingProvider struct {
	mu     sync.Mutex
	inner  Provider
	limit  int
	allocs int
	frees  int
	live   int
}

// NewCountingProvider wraps inner, or the system provider when inner is
// nil.
func NewCountingProvider(inner Provider) *CountingProvider {
	if inner == nil {
		inner = SystemProvider()
	}
	return &CountingProvider{inner: inner}
}

// SetLimit caps live bytes at n. Zero removes the cap.
func (p *CountingProvider) SetLimit(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limit = n
}

func (p *CountingProvider) Alloc(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.limit > 0 && p.live+n > p.limit {
		return nil, fmt.Errorf("counting provider: limit %d exceeded by %d-byte request", p.limit, n)
	}
	b, err := p.inner.Alloc(n)
	if err != nil {
		return nil, err
	}
	p.allocs++
	p.live += len(b)
	return b, nil
}

func (p *CountingProvider) Free(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.inner.Free(b); err != nil {
		return err
	}
	p.frees++
	p.live -= len(b)
	return nil
}

// Allocs returns the number of regions reserved so far.
func (p *CountingProvider) Allocs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocs
}

// Frees returns the number of regions released so far.
func (p *CountingProvider) Frees() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frees
}

// LiveBytes returns the bytes currently reserved and not yet released.
func (p *CountingProvider) LiveBytes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}
