// Package coordinator mediates the rendezvous between a bridge delivering a
// task's terminal envelope on a worker and a waiter awaiting it on the
// submitting side. Two variants satisfy the same Coordinator contract: the
// in-memory coordinator (single process) and the distributed coordinator
// (key/value store + pub/sub, multi-process). Callers above this package
// depend only on the Coordinator interface, never on a concrete variant.
package coordinator

import (
	"context"

	"github.com/ndyer/rendezvous/envelope"
)

// Success wraps a completed payload for CompleteTask.
type Success struct {
	Payload []byte
}

// Failure wraps a failed outcome for CompleteTask.
type Failure struct {
	Kind    envelope.ErrorKind
	Message string
	Origin  *string
}

// Coordinator is the closed set of operations the bridge and the scheduler
// facade consume (§4.D). Both variants satisfy it identically from the
// caller's observable semantics, modulo which clock enforces the deadline.
type Coordinator interface {
	// CreateTask generates a fresh task_id, records it Pending, and arms its
	// timeout. typeTag identifies the expected payload codec for callers
	// that later decode Result.
	CreateTask(ctx context.Context, typeTag string) (taskID string, err error)

	// CompleteTask delivers exactly one of Success or Failure for taskID.
	// CAS semantics: a task already terminal, or absent, is a no-op.
	CompleteTask(ctx context.Context, taskID string, success *Success, failure *Failure) error

	// WaitForCompletion blocks until taskID reaches a terminal state, ctx is
	// done, or the coordinator's own task_timeout elapses — whichever comes
	// first. Returns the payload on Completed; returns a *envelope.
	// RendezvousError on Failed, on ctx cancellation (Cancelled), or when
	// taskID is unknown (NotFound).
	WaitForCompletion(ctx context.Context, taskID string) ([]byte, error)

	// CleanupTask removes taskID's record. Idempotent; safe to call after a
	// failed or successful WaitForCompletion, and safe to call twice.
	CleanupTask(ctx context.Context, taskID string) error

	// Close stops the coordinator's background sweeper/subscriber
	// goroutines. It does not affect already-suspended waiters beyond their
	// normal exit conditions.
	Close() error
}
