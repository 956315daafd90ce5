// Package metrics instruments a buf.Provider with Prometheus metrics, so
// region traffic (slab growth, custom slabs, releases) is visible on the
// same dashboards as the rest of a service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joshuapare/bufkit/buf"
)

// Provider wraps an inner buf.Provider and counts every region it hands
// out and takes back. The prometheus types are atomic, so a Provider is as
// safe for concurrent use as its inner provider.
type Provider struct {
	inner buf.Provider

	allocs   prometheus.Counter
	frees    prometheus.Counter
	failures prometheus.Counter
	reserved prometheus.Gauge
}

// NewProvider instruments inner (or the system provider when inner is
// nil), registering its metrics with reg.
func NewProvider(inner buf.Provider, reg prometheus.Registerer) *Provider {
	if inner == nil {
		inner = buf.SystemProvider()
	}
	factory := promauto.With(reg)
	return &Provider{
		inner: inner,
		allocs: factory.NewCounter(prometheus.CounterOpts{
			Name: "bufkit_region_allocs_total",
			Help: "Total memory regions reserved from the host.",
		}),
		frees: factory.NewCounter(prometheus.CounterOpts{
			Name: "bufkit_region_frees_total",
			Help: "Total memory regions released back to the host.",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "bufkit_region_alloc_failures_total",
			Help: "Total region reservations the host refused.",
		}),
		reserved: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bufkit_region_reserved_bytes",
			Help: "Bytes currently reserved from the host.",
		}),
	}
}

// Alloc reserves a region through the inner provider, counting the
// outcome.
func (p *Provider) Alloc(n int) ([]byte, error) {
	b, err := p.inner.Alloc(n)
	if err != nil {
		p.failures.Inc()
		return nil, err
	}
	p.allocs.Inc()
	p.reserved.Add(float64(len(b)))
	return b, nil
}

// Free releases a region through the inner provider. The books only move
// once the inner provider has actually taken the region back.
func (p *Provider) Free(b []byte) error {
	if err := p.inner.Free(b); err != nil {
		return err
	}
	p.frees.Inc()
	p.reserved.Sub(float64(len(b)))
	return nil
}

var _ buf.Provider = (*Provider)(nil)
