// Package pool bounds how many slots localengine's in-process Job Engine
// lets run concurrently. A slot carries no state of its own (localengine's
// slot{} is zero-size) — Pool exists purely to turn "unbounded goroutines"
// into "at most N in flight" when an operator sets max_concurrent_jobs, and
// to fall back to one goroutine per job when they don't.
package pool

// Pool hands out and reclaims execution slots.
type Pool interface {
	// Get blocks until a slot is available and returns it.
	Get() interface{}

	// Put returns a slot for reuse. Every value returned by Get must be
	// passed to Put exactly once.
	Put(interface{})
}
