// Package localengine is a reference, in-process implementation of the Job
// Engine contract the core consumes abstractly (§6): enqueue, schedule,
// add_or_update, trigger, remove. It is not part of the coordinator/bridge
// core — the core treats the Job Engine as an external collaborator and
// only depends on this contract — but it gives the rest of the module a
// concrete engine to run against in tests and examples without a real
// Hangfire/Sidekiq-style system.
//
// Concurrency bounding follows the teacher pool package's own dynamic-vs-
// fixed split: a zero MaxConcurrentJobs means unbounded (pool.NewDynamic,
// one goroutine per job), a positive value bounds concurrent execution via
// pool.NewFixed's blocking Get/Put.
package localengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndyer/rendezvous/metrics"
	"github.com/ndyer/rendezvous/pool"
)

// JobFunc is a unit of work the engine ships to a worker. The bridge
// package produces these: a JobFunc closes over (handler_descriptor,
// request, task_id, retry_budget) and runs the bridge's retry loop when
// invoked. It is a type alias (not a distinct named type) so that it is
// identical to the root package's own JobEngine method signatures without
// either package importing the other.
type JobFunc = func(ctx context.Context) error

type recurringJob struct {
	name     string
	job      JobFunc
	cronExpr string
	zone     *time.Location
}

// Engine is the in-process Job Engine.
type Engine struct {
	pool pool.Pool

	mu        sync.Mutex
	recurring map[string]*recurringJob

	wg      sync.WaitGroup
	logger  *zap.Logger
	metrics metrics.Provider
}

type slot struct{}

// NewEngine constructs an Engine. maxConcurrentJobs == 0 means unbounded
// concurrency (a goroutine per job, worker objects merely reused); a
// positive value bounds concurrent job execution to that many at once.
func NewEngine(maxConcurrentJobs uint, logger *zap.Logger, provider metrics.Provider) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}

	newSlot := func() interface{} { return slot{} }
	var p pool.Pool
	if maxConcurrentJobs == 0 {
		p = pool.NewDynamic(newSlot)
	} else {
		p = pool.NewFixed(maxConcurrentJobs, newSlot)
	}

	return &Engine{
		pool:      p,
		recurring: make(map[string]*recurringJob),
		logger:    logger,
		metrics:   provider,
	}
}

// Enqueue implements the Job Engine's immediate-execution primitive.
// job_id is an opaque string; the job itself begins running as soon as a
// slot is available.
func (e *Engine) Enqueue(ctx context.Context, job JobFunc) (string, error) {
	if job == nil {
		return "", fmt.Errorf("localengine: enqueue: job must not be nil")
	}
	jobID := uuid.New().String()
	e.runAsync(ctx, job)
	return jobID, nil
}

// Schedule implements the Job Engine's delayed-execution primitive.
func (e *Engine) Schedule(ctx context.Context, job JobFunc, when time.Time) (string, error) {
	if job == nil {
		return "", fmt.Errorf("localengine: schedule: job must not be nil")
	}
	jobID := uuid.New().String()
	delay := time.Until(when)
	if delay < 0 {
		delay = 0
	}

	e.wg.Add(1)
	time.AfterFunc(delay, func() {
		defer e.wg.Done()
		e.runOnSlot(ctx, job)
	})
	return jobID, nil
}

// AddOrUpdate registers (or replaces) a named recurring job. This reference
// engine records the cron expression and zone as metadata but does not
// parse or schedule cron ticks itself: no cron-expression parser is
// available among this module's dependencies, and the core spec treats the
// Job Engine's cron semantics as an external, out-of-scope concern. Use
// Trigger to run a registered job on demand.
func (e *Engine) AddOrUpdate(name string, job JobFunc, cronExpr string, zone *time.Location) error {
	if name == "" {
		return fmt.Errorf("localengine: add_or_update: name must not be empty")
	}
	if job == nil {
		return fmt.Errorf("localengine: add_or_update: job must not be nil")
	}
	e.mu.Lock()
	e.recurring[name] = &recurringJob{name: name, job: job, cronExpr: cronExpr, zone: zone}
	e.mu.Unlock()
	return nil
}

// Trigger runs a registered recurring job immediately, out of its cron
// schedule.
func (e *Engine) Trigger(name string) error {
	e.mu.Lock()
	rec, ok := e.recurring[name]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("localengine: trigger: unknown job %q", name)
	}
	e.runAsync(context.Background(), rec.job)
	return nil
}

// Remove unregisters a named recurring job. Idempotent.
func (e *Engine) Remove(name string) error {
	e.mu.Lock()
	delete(e.recurring, name)
	e.mu.Unlock()
	return nil
}

func (e *Engine) runAsync(ctx context.Context, job JobFunc) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runOnSlot(ctx, job)
	}()
}

func (e *Engine) runOnSlot(ctx context.Context, job JobFunc) {
	s := e.pool.Get()
	defer e.pool.Put(s)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("job panicked", zap.Any("panic", r))
		}
	}()

	if err := job(ctx); err != nil {
		e.logger.Debug("job returned error", zap.Error(err))
	}
}

// Close waits for in-flight and scheduled jobs to finish. It does not
// cancel them; callers wanting cancellation should cancel the context
// passed to Enqueue/Schedule themselves. Jobs started by Trigger run under
// context.Background() and cannot be cancelled this way.
func (e *Engine) Close() error {
	e.wg.Wait()
	return nil
}
