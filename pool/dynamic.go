package pool

import "sync"

// dynamic is the unbounded variant: every Get beyond what's idle allocates a
// fresh slot via sync.Pool, so localengine never blocks a job waiting for
// concurrency headroom (localengine.NewEngine with maxConcurrentJobs == 0).
type dynamic struct {
	sp sync.Pool
}

// NewDynamic constructs an unbounded Pool backed by sync.Pool.
func NewDynamic(newFn func() interface{}) Pool {
	return &dynamic{sp: sync.Pool{New: newFn}}
}

func (p *dynamic) Get() interface{}   { return p.sp.Get() }
func (p *dynamic) Put(el interface{}) { p.sp.Put(el) }
