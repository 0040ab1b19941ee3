package rendezvous

import (
	"context"
	"time"
)

// JobEngine is the fire-and-forget background-job engine this package turns
// into a two-way RPC (§6). It is declared entirely in terms of unnamed
// function types rather than a named JobFunc alias so that any concrete
// engine — including localengine.Engine — satisfies it structurally without
// importing this package.
//
// Implementations are expected to run each submitted job at most once under
// normal operation; the bridge's own retry loop (not the engine's) is what
// the core relies on for handler-level resilience. Enqueue/Schedule return
// an opaque job_id the caller may use for engine-native diagnostics; this
// package itself never inspects it.
type JobEngine interface {
	// Enqueue submits a job for execution as soon as a worker is free.
	Enqueue(ctx context.Context, job func(ctx context.Context) error) (jobID string, err error)

	// Schedule submits a job for execution no earlier than when.
	Schedule(ctx context.Context, job func(ctx context.Context) error, when time.Time) (jobID string, err error)

	// AddOrUpdate registers (or replaces) a named recurring job on the given
	// cron expression, interpreted in zone.
	AddOrUpdate(name string, job func(ctx context.Context) error, cronExpr string, zone *time.Location) error

	// Trigger runs a registered recurring job immediately, independent of
	// its cron schedule.
	Trigger(name string) error

	// Remove unregisters a named recurring job. Idempotent.
	Remove(name string) error
}

// HandlerDispatcher is the user-supplied request/notification router the
// Bridge calls into (§4.E, §6). It is typically backed by a mediator
// library; this package only ever calls Dispatch (for a request expecting a
// typed response or acknowledgment) or Publish (for a notification with no
// response).
type HandlerDispatcher interface {
	// Dispatch routes request to its registered handler and returns the
	// handler's typed result, or an error if the handler failed or no
	// handler is registered.
	Dispatch(ctx context.Context, request interface{}) (interface{}, error)

	// Publish routes notification to zero or more registered handlers.
	// There is no result to propagate; a returned error means dispatch
	// itself failed (e.g. no handler could be invoked) or that one of the
	// handlers failed.
	Publish(ctx context.Context, notification interface{}) error
}
