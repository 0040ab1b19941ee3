package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PromProvider is a Provider backed by github.com/prometheus/client_golang.
// Instruments are created on demand per name and registered against the
// supplied registerer. Calling the same method again with a name it has
// already seen records into the previously created collector; unlike
// BasicProvider, each call returns a new wrapper value around it.
type PromProvider struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	updowns    map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPromProvider constructs a PromProvider that registers instruments
// against reg. Pass prometheus.DefaultRegisterer to use the global registry.
func NewPromProvider(reg prometheus.Registerer) *PromProvider {
	return &PromProvider{
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		updowns:    make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (p *PromProvider) Counter(name string) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = prometheus.NewCounter(prometheus.CounterOpts{Name: name})
		p.reg.MustRegister(c)
		p.counters[name] = c
	}
	return &promCounter{c: c}
}

func (p *PromProvider) UpDownCounter(name string) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.updowns[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{Name: name})
		p.reg.MustRegister(g)
		p.updowns[name] = g
	}
	return &promUpDownCounter{g: g}
}

func (p *PromProvider) Histogram(name string) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		h = prometheus.NewHistogram(prometheus.HistogramOpts{Name: name})
		p.reg.MustRegister(h)
		p.histograms[name] = h
	}
	return &promHistogram{h: h}
}

type promCounter struct{ c prometheus.Counter }

func (c *promCounter) Add(n int64) { c.c.Add(float64(n)) }

type promUpDownCounter struct{ g prometheus.Gauge }

func (u *promUpDownCounter) Add(n int64) { u.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (h *promHistogram) Record(v float64) { h.h.Observe(v) }
