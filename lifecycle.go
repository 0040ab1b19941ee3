package rendezvous

import (
	"sync"
)

// lifecycleCoordinator encapsulates the Scheduler shutdown sequence. It is a
// wiring helper, not an owner of state: it orchestrates, in deterministic
// order, waiting for in-flight bridge invocations and then releasing the
// Job Engine and Coordinator. Close() is safe for concurrent calls; the
// sequence executes exactly once.
type lifecycleCoordinator struct {
	awaitInflight func()
	closeEngine   func() error
	closeCoord    func() error

	once sync.Once
	err  error
}

func newLifecycleCoordinator(awaitInflight func(), closeEngine, closeCoord func() error) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		awaitInflight: awaitInflight,
		closeEngine:   closeEngine,
		closeCoord:    closeCoord,
	}
}

// Close runs the shutdown sequence exactly once:
//  1. wait for in-flight bridge invocations to return
//  2. close the Job Engine (no more jobs accepted/running)
//  3. close the Coordinator (release its sweeper/connections)
//
// The first non-nil error from steps 2-3 is returned; both are always
// attempted regardless of whether the other failed.
func (lc *lifecycleCoordinator) Close() error {
	lc.once.Do(func() {
		if lc.awaitInflight != nil {
			lc.awaitInflight()
		}

		var engineErr, coordErr error
		if lc.closeEngine != nil {
			engineErr = lc.closeEngine()
		}
		if lc.closeCoord != nil {
			coordErr = lc.closeCoord()
		}

		if engineErr != nil {
			lc.err = engineErr
		} else {
			lc.err = coordErr
		}
	})
	return lc.err
}
