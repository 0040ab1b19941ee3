package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndyer/rendezvous/envelope"
	"github.com/ndyer/rendezvous/metrics"
)

// taskRecord is the in-memory rendezvous unit: a task_id's status plus the
// completion slot a waiter suspends on. doneCh is closed exactly once, on
// the transition into a terminal status; it is the completion slot's
// "resolve" side, and receiving from it (or from ctx.Done()) is "await".
type taskRecord struct {
	mu sync.Mutex

	typeTag     string
	createdAt   time.Time
	completedAt time.Time
	status      envelope.Status
	result      []byte
	hasResult   bool
	failure     *envelope.RendezvousError

	doneCh   chan struct{}
	resolved bool
	waited   bool

	timeoutTimer *time.Timer
}

// Memory is the single-process Coordinator variant (§4.B). It trades
// durability for zero external dependencies: rendezvous state lives only in
// this process's heap, lost on crash or restart.
type Memory struct {
	mu    sync.Mutex
	tasks map[string]*taskRecord

	taskTimeout   time.Duration
	sweepInterval time.Duration

	logger  *zap.Logger
	metrics metrics.Provider

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewMemory constructs a Memory coordinator. taskTimeout bounds every task's
// Pending lifetime (§3, invariant 4). sweepInterval controls how often the
// reclaim pass (cleanup_interval, §4.G) runs; 0 auto-derives a sensible
// interval from taskTimeout. logger and metrics may be nil, in which case a
// no-op logger/provider is used.
func NewMemory(taskTimeout, sweepInterval time.Duration, logger *zap.Logger, provider metrics.Provider) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}

	if sweepInterval <= 0 {
		sweepInterval = time.Minute
		if quarter := taskTimeout / 4; quarter < sweepInterval {
			sweepInterval = quarter
		}
		if sweepInterval <= 0 {
			sweepInterval = taskTimeout
		}
	}

	m := &Memory{
		tasks:         make(map[string]*taskRecord),
		taskTimeout:   taskTimeout,
		sweepInterval: sweepInterval,
		logger:        logger,
		metrics:       provider,
		stopCh:        make(chan struct{}),
	}

	m.wg.Add(1)
	go m.sweep()

	return m
}

// CreateTask implements Coordinator.
func (m *Memory) CreateTask(_ context.Context, typeTag string) (string, error) {
	taskID := uuid.New().String()
	rec := &taskRecord{
		typeTag:   typeTag,
		createdAt: time.Now(),
		status:    envelope.StatusPending,
		doneCh:    make(chan struct{}),
	}

	m.mu.Lock()
	m.tasks[taskID] = rec
	m.mu.Unlock()

	rec.timeoutTimer = time.AfterFunc(m.taskTimeout, func() {
		m.forceTimeout(taskID, rec)
	})

	m.metrics.Counter(metrics.TasksCreated).Add(1)
	return taskID, nil
}

// forceTimeout transitions rec to Failed/Timeout if it is still Pending.
// Safe under a race with a genuine completion arriving in the same instant:
// whichever of forceTimeout/CompleteTask takes the lock first wins the CAS.
func (m *Memory) forceTimeout(taskID string, rec *taskRecord) {
	rec.mu.Lock()
	if rec.status != envelope.StatusPending {
		rec.mu.Unlock()
		return
	}
	rec.status = envelope.StatusFailed
	rec.completedAt = time.Now()
	rec.failure = envelope.NewError(envelope.KindTimeout, "task exceeded its deadline", nil)
	resolved := rec.resolved
	rec.resolved = true
	if !resolved {
		close(rec.doneCh)
	}
	rec.mu.Unlock()

	m.metrics.Counter(metrics.TasksTimedOut).Add(1)
	m.logger.Debug("task timed out", zap.String("task_id", taskID))
}

// CompleteTask implements Coordinator. A task absent or already terminal is
// a silent no-op: the worker must never fail because a waiter already gave
// up or because a racing completion already won.
func (m *Memory) CompleteTask(_ context.Context, taskID string, success *Success, failure *Failure) error {
	m.mu.Lock()
	rec, ok := m.tasks[taskID]
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("complete_task for unknown task_id", zap.String("task_id", taskID))
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != envelope.StatusPending {
		m.logger.Debug("complete_task on already-terminal task", zap.String("task_id", taskID))
		return nil
	}

	if rec.timeoutTimer != nil {
		rec.timeoutTimer.Stop()
	}
	rec.completedAt = time.Now()

	switch {
	case success != nil:
		rec.status = envelope.StatusCompleted
		rec.result = success.Payload
		rec.hasResult = true
		m.metrics.Counter(metrics.TasksCompleted).Add(1)
	case failure != nil:
		rec.status = envelope.StatusFailed
		rec.failure = envelope.NewError(failure.Kind, failure.Message, failure.Origin)
		m.metrics.Counter(metrics.TasksFailed).Add(1)
	default:
		return invalidArgument("success_or_failure", "exactly one of success/failure must be provided")
	}

	if !rec.resolved {
		rec.resolved = true
		close(rec.doneCh)
	}
	return nil
}

// WaitForCompletion implements Coordinator. A second concurrent wait on the
// same task_id is rejected with InvalidArgument (§4.C's open question,
// resolved here: forbid rather than multiplex).
func (m *Memory) WaitForCompletion(ctx context.Context, taskID string) ([]byte, error) {
	start := time.Now()
	defer func() {
		m.metrics.Histogram(metrics.WaitDurationSeconds).Record(time.Since(start).Seconds())
	}()

	m.mu.Lock()
	rec, ok := m.tasks[taskID]
	m.mu.Unlock()
	if !ok {
		return nil, envelope.NewError(envelope.KindNotFound, "unknown task_id: "+taskID, nil)
	}

	rec.mu.Lock()
	if rec.waited {
		rec.mu.Unlock()
		return nil, invalidArgument("task_id", "a waiter is already suspended on this task_id")
	}
	rec.waited = true
	doneCh := rec.doneCh
	rec.mu.Unlock()

	select {
	case <-doneCh:
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if rec.status == envelope.StatusCompleted {
			return rec.result, nil
		}
		return nil, rec.failure

	case <-ctx.Done():
		return nil, envelope.NewError(envelope.KindCancelled, "wait_for_completion cancelled", nil)
	}
}

// CleanupTask implements Coordinator. Idempotent: removing an already-gone
// record is a no-op, not an error.
func (m *Memory) CleanupTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	rec, ok := m.tasks[taskID]
	if ok {
		delete(m.tasks, taskID)
	}
	m.mu.Unlock()

	if ok && rec.timeoutTimer != nil {
		rec.timeoutTimer.Stop()
	}
	return nil
}

// Close stops the sweeper goroutine. It does not touch any suspended
// waiter; those exit on their own terms (completion, cancel, timeout).
func (m *Memory) Close() error {
	m.once.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
	return nil
}

// sweep periodically reclaims abandoned terminal records (e.g. a waiter
// that was cancelled and never called CleanupTask) and, as a backstop,
// forces any Pending record that somehow outlived its per-task timer into
// Failed/Timeout. Sweeper failures are logged and never propagate (§7).
func (m *Memory) sweep() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

func (m *Memory) sweepOnce() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("sweeper recovered from panic", zap.Any("panic", r))
		}
	}()

	now := time.Now()
	retention := m.taskTimeout

	m.mu.Lock()
	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.mu.Lock()
		rec, ok := m.tasks[id]
		m.mu.Unlock()
		if !ok {
			continue
		}

		rec.mu.Lock()
		if rec.status == envelope.StatusPending && now.Sub(rec.createdAt) > m.taskTimeout {
			rec.status = envelope.StatusFailed
			rec.completedAt = now
			rec.failure = envelope.NewError(envelope.KindTimeout, "task exceeded its deadline", nil)
			if !rec.resolved {
				rec.resolved = true
				close(rec.doneCh)
			}
			rec.mu.Unlock()
			m.metrics.Counter(metrics.TasksTimedOut).Add(1)
			continue
		}

		shouldDelete := rec.status != envelope.StatusPending && !rec.completedAt.IsZero() && now.Sub(rec.completedAt) > retention
		rec.mu.Unlock()

		if shouldDelete {
			m.mu.Lock()
			delete(m.tasks, id)
			m.mu.Unlock()
		}
	}
}
