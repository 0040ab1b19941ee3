package rendezvous

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/ndyer/rendezvous/coordinator"
)

// Scheduler is the thin facade binding user-facing operations to a Job
// Engine and a Bridge (§4.F). It contains no logic of its own beyond task
// creation, enqueue, wait, and cleanup wiring.
type Scheduler struct {
	engine JobEngine
	coord  coordinator.Coordinator
	bridge *Bridge

	defaultRetryBudget int
	logger             *zap.Logger

	lifecycle *lifecycleCoordinator
}

// engineCloser is implemented by Job Engines that own a lifetime worth
// draining on shutdown (e.g. localengine.Engine). It is optional: an
// external Job Engine with no such concept simply isn't closed here.
type engineCloser interface {
	Close() error
}

// NewScheduler binds engine, dispatcher, and coord into a Scheduler. opts
// undergo the full closed-set validation (§4.G): any violation is returned
// as an InvalidArgument error and no Scheduler is constructed.
func NewScheduler(engine JobEngine, dispatcher HandlerDispatcher, coord coordinator.Coordinator, opts ...Option) (*Scheduler, error) {
	if engine == nil {
		return nil, invalidArgument("engine", "must not be nil")
	}
	if coord == nil {
		return nil, invalidArgument("coordinator", "must not be nil")
	}

	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	bridge, err := NewBridge(dispatcher, coord, WithLogger(o.Logger), WithMetrics(o.Metrics))
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		engine:             engine,
		coord:              coord,
		bridge:             bridge,
		defaultRetryBudget: o.DefaultRetryBudget,
		logger:             o.Logger,
	}
	s.lifecycle = newLifecycleCoordinator(bridge.awaitInflight, s.closeEngine, coord.Close)
	return s, nil
}

func (s *Scheduler) closeEngine() error {
	if c, ok := s.engine.(engineCloser); ok {
		return c.Close()
	}
	return nil
}

// Enqueue submits a fire-and-forget invocation of displayName against
// request on the Job Engine. No envelope is produced; the handler's return
// value, if any, is discarded, and a handler failure propagates to the Job
// Engine's own retry/alerting policy.
func (s *Scheduler) Enqueue(ctx context.Context, displayName string, request interface{}) (string, error) {
	job, err := s.bridge.Invoke(displayName, request, "", s.defaultRetryBudget)
	if err != nil {
		return "", err
	}
	return s.engine.Enqueue(ctx, job)
}

// Schedule submits a fire-and-forget invocation to run no earlier than
// when, delegating the delay to the Job Engine.
func (s *Scheduler) Schedule(ctx context.Context, displayName string, request interface{}, when time.Time) (string, error) {
	job, err := s.bridge.Invoke(displayName, request, "", s.defaultRetryBudget)
	if err != nil {
		return "", err
	}
	return s.engine.Schedule(ctx, job, when)
}

// AddOrUpdate registers (or replaces) a named recurring fire-and-forget
// invocation, delegating the cron schedule to the Job Engine.
func (s *Scheduler) AddOrUpdate(name, displayName string, request interface{}, cronExpr string, zone *time.Location) error {
	job, err := s.bridge.Invoke(displayName, request, "", s.defaultRetryBudget)
	if err != nil {
		return err
	}
	return s.engine.AddOrUpdate(name, job, cronExpr, zone)
}

// Notify fans notification out to every handler registered for it, via the
// Handler Dispatcher's Publish contract (§6). It bypasses the Job Engine
// entirely: there's no result to rendezvous on, so it runs synchronously and
// a handler failure propagates straight back to the caller instead of going
// to the Job Engine's retry/alerting policy.
func (s *Scheduler) Notify(ctx context.Context, notification interface{}) error {
	return s.bridge.Notify(ctx, notification)
}

// Trigger runs a registered recurring job immediately. Delegates to the Job
// Engine.
func (s *Scheduler) Trigger(name string) error { return s.engine.Trigger(name) }

// Remove unregisters a named recurring job. Delegates to the Job Engine.
func (s *Scheduler) Remove(name string) error { return s.engine.Remove(name) }

// Close runs the Scheduler's shutdown sequence exactly once: wait for
// in-flight bridge invocations, close the Job Engine (if it supports
// closing), then close the Coordinator.
func (s *Scheduler) Close() error { return s.lifecycle.Close() }

// EnqueueWithResult submits displayName/request for asynchronous execution
// and blocks until its typed result is available, or the task's deadline
// elapses, or ctx is cancelled (§4.F). It is a free function rather than a
// method because Go does not allow a generic method on a non-generic
// receiver type.
//
// cleanup_task always runs on every exit path — success, failure, or a
// panic unwinding through this call — so no record for task_id outlives
// its retention window regardless of how the wait ended (§8, property 8).
func EnqueueWithResult[T any](ctx context.Context, s *Scheduler, displayName string, request interface{}, retryBudget int) (T, error) {
	var zero T

	if err := validateInvokeArgs(displayName, request, retryBudget); err != nil {
		return zero, err
	}

	typeTag := fmt.Sprintf("%T", zero)

	taskID, err := s.coord.CreateTask(ctx, typeTag)
	if err != nil {
		return zero, err
	}
	defer func() {
		if cerr := s.coord.CleanupTask(context.Background(), taskID); cerr != nil {
			s.logger.Error("cleanup_task failed", zap.String("task_id", taskID), zap.Error(cerr))
		}
	}()

	job, err := s.bridge.Invoke(displayName, request, taskID, retryBudget)
	if err != nil {
		return zero, err
	}
	if _, err := s.engine.Enqueue(ctx, job); err != nil {
		return zero, err
	}

	payload, err := s.coord.WaitForCompletion(ctx, taskID)
	if err != nil {
		return zero, err
	}

	var result T
	if err := cbor.Unmarshal(payload, &result); err != nil {
		return zero, serializationFailed(typeTag, err)
	}
	return result, nil
}
