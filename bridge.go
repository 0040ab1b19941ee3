package rendezvous

import (
	"context"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/ndyer/rendezvous/coordinator"
	"github.com/ndyer/rendezvous/envelope"
	"github.com/ndyer/rendezvous/metrics"
)

// backoffBase is the bridge retry loop's backoff unit: delay(n) = base *
// 2^(n-1) (§4.E).
const backoffBase = time.Second

// Bridge runs on a worker when the Job Engine invokes a job it produced
// (§4.E). It dispatches a request to the user's HandlerDispatcher under a
// bounded retry loop and, for response-bearing invocations, delivers the
// terminal result-or-error envelope to a Coordinator.
type Bridge struct {
	dispatcher HandlerDispatcher
	coord      coordinator.Coordinator

	logger  *zap.Logger
	metrics metrics.Provider

	inflight sync.WaitGroup
}

// NewBridge constructs a Bridge bound to dispatcher and coord. Only the
// logger/metrics options are meaningful here; coordinator-selection options
// (use_in_memory_coordination, remote_store_endpoint, ...) are the
// Scheduler's concern, not the Bridge's — coord is already a constructed
// Coordinator by the time it reaches NewBridge.
func NewBridge(dispatcher HandlerDispatcher, coord coordinator.Coordinator, opts ...Option) (*Bridge, error) {
	if dispatcher == nil {
		return nil, invalidArgument("dispatcher", "must not be nil")
	}
	if coord == nil {
		return nil, invalidArgument("coordinator", "must not be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			return nil, invalidArgument("option", "nil option")
		}
		opt(&o)
	}

	return &Bridge{dispatcher: dispatcher, coord: coord, logger: o.Logger, metrics: o.Metrics}, nil
}

// validateInvokeArgs checks the arguments every invocation path (fire-and-
// forget or response-bearing) shares, before anything with a side effect —
// a coordinator record, a job enqueue — happens. Callers that need to fail
// synchronously ahead of their own side effects (EnqueueWithResult's
// create_task, §8 S9) call this directly instead of going through Invoke.
func validateInvokeArgs(displayName string, request interface{}, retryBudget int) error {
	if displayName == "" {
		return invalidArgument("display_name", "must not be empty")
	}
	if request == nil {
		return invalidArgument("request", "must not be nil")
	}
	if retryBudget < 0 {
		return invalidArgument("retry_budget", "must be >= 0")
	}
	return nil
}

// Invoke builds the job the Job Engine runs on a worker (§4.E): a closure
// that dispatches request under a bounded retry loop and, when taskID is
// non-empty, delivers the terminal envelope to the bound Coordinator.
// taskID == "" selects the fire-and-forget variant: no envelope is ever
// produced and a handler failure propagates to the Job Engine unchanged.
func (b *Bridge) Invoke(displayName string, request interface{}, taskID string, retryBudget int) (func(ctx context.Context) error, error) {
	if err := validateInvokeArgs(displayName, request, retryBudget); err != nil {
		return nil, err
	}

	responseBearing := taskID != ""

	return func(ctx context.Context) error {
		b.inflight.Add(1)
		defer b.inflight.Done()

		b.metrics.UpDownCounter(metrics.BridgeInflight).Add(1)
		defer b.metrics.UpDownCounter(metrics.BridgeInflight).Add(-1)

		maxAttempts := 1 + retryBudget
		attemptsMade := 0
		var lastErr error

		for {
			result, err := invokeDispatch(ctx, b.dispatcher, request)
			attemptsMade++
			if err == nil {
				if attemptsMade > 1 {
					b.metrics.Counter(metrics.BridgeRetries).Add(int64(attemptsMade - 1))
				}
				if !responseBearing {
					return nil
				}
				return b.deliverSuccess(ctx, displayName, taskID, result)
			}

			lastErr = err
			if attemptsMade >= maxAttempts {
				break
			}

			delay := backoffBase * time.Duration(1<<uint(attemptsMade-1))
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				if responseBearing {
					return b.deliverFailure(ctx, displayName, taskID, attemptsMade, lastErr)
				}
				return ctx.Err()
			}
		}

		b.metrics.Counter(metrics.BridgeRetries).Add(int64(attemptsMade - 1))

		if !responseBearing {
			return lastErr
		}
		return b.deliverFailure(ctx, displayName, taskID, attemptsMade, lastErr)
	}, nil
}

// deliverSuccess serializes result (the handler's typed return value) and
// hands it to the Coordinator as the task's completion payload. The
// envelope codec itself is CBOR, matching the wire format used for the
// terminal record (§4.A), so a single library covers both layers of
// serialization instead of introducing a second one just for payloads.
func (b *Bridge) deliverSuccess(ctx context.Context, displayName, taskID string, result interface{}) error {
	payload, err := cbor.Marshal(result)
	if err != nil {
		failure := envelope.NewError(envelope.KindSerializationFailed, err.Error(), nil)
		return b.complete(ctx, taskID, nil, failure)
	}
	return b.complete(ctx, taskID, &coordinator.Success{Payload: payload}, nil)
}

// deliverFailure builds the HandlerFailed envelope for a retry sequence that
// exhausted its budget (§4.E, §7).
func (b *Bridge) deliverFailure(ctx context.Context, displayName, taskID string, attempts int, cause error) error {
	return b.complete(ctx, taskID, nil, handlerFailed(displayName, attempts, cause))
}

// complete delivers either a success payload or a failure envelope to the
// Coordinator. The task is always delivered ("return from the job
// normally") per §4.E; a coordinator-side delivery failure is propagated to
// the Job Engine so it isn't silently lost, since nothing else observes it.
func (b *Bridge) complete(ctx context.Context, taskID string, success *coordinator.Success, failure *envelope.RendezvousError) error {
	var cf *coordinator.Failure
	if failure != nil {
		cf = &coordinator.Failure{Kind: failure.Kind, Message: failure.Message}
		if failure.Origin != "" {
			origin := failure.Origin
			cf.Origin = &origin
		}
	}

	if err := b.coord.CompleteTask(ctx, taskID, success, cf); err != nil {
		b.logger.Error("complete_task failed", zap.String("task_id", taskID), zap.Error(err))
		return err
	}
	return nil
}

// Notify fans notification out to every handler registered for it via the
// HandlerDispatcher's Publish contract (§6: "publish(notification) → ()").
// Unlike Invoke it never touches the Job Engine or the Coordinator — there
// is no result to rendezvous on, so it runs synchronously on the caller's
// goroutine and any handler failure propagates directly to the caller.
func (b *Bridge) Notify(ctx context.Context, notification interface{}) error {
	if notification == nil {
		return invalidArgument("notification", "must not be nil")
	}
	return invokePublish(ctx, b.dispatcher, notification)
}

// awaitInflight blocks until every invocation this Bridge has produced has
// returned from its job closure. Used by lifecycle shutdown to avoid
// closing the Coordinator out from under a still-running retry loop.
func (b *Bridge) awaitInflight() { b.inflight.Wait() }
