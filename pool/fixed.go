package pool

// fixed is the bounded variant: a buffered channel pre-loaded with exactly
// capacity slots acts as the semaphore. Get drains one (blocking once all
// capacity slots are checked out); Put returns it. This is what backs
// max_concurrent_jobs > 0 (§4.G): localengine never runs more than capacity
// jobs at once, and the (capacity+1)-th enqueued job simply waits its turn.
type fixed struct {
	slots chan interface{}
}

// NewFixed constructs a Pool bounded to capacity concurrently held slots,
// eagerly materializing all of them via newFn. capacity == 0 is a
// degenerate pool whose Get never returns — callers validate
// max_concurrent_jobs > 0 before construction (§4.G).
func NewFixed(capacity uint, newFn func() interface{}) Pool {
	slots := make(chan interface{}, capacity)
	for i := uint(0); i < capacity; i++ {
		slots <- newFn()
	}
	return &fixed{slots: slots}
}

func (p *fixed) Get() interface{}   { return <-p.slots }
func (p *fixed) Put(el interface{}) { p.slots <- el }
