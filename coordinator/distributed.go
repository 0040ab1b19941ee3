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

// Store is the abstract key/value dependency the distributed coordinator
// needs from its remote backend (§6): set-with-TTL, get, delete. No
// multi-key transactions are required.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Delete(ctx context.Context, key string) error
}

// Subscription is a live subscription to a single pub/sub channel.
type Subscription interface {
	// Messages yields one slice per published message, in order, until
	// Close is called.
	Messages() <-chan []byte
	Close() error
}

// PubSub is the abstract publish/subscribe dependency.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Distributed is the multi-process Coordinator variant (§4.C): producer and
// consumer may be different hosts, rendezvous happens entirely through the
// Store/PubSub dependency.
type Distributed struct {
	store  Store
	pubsub PubSub

	keyPrefix   string
	taskTimeout time.Duration

	logger  *zap.Logger
	metrics metrics.Provider

	waitersMu sync.Mutex
	waiters   map[string]struct{}
}

// NewDistributed constructs a Distributed coordinator. keyPrefix is
// prepended to every store key and pub/sub channel name (default
// "hangfire-mediatr:", see Options). taskTimeout is both the store TTL and
// the wait_for_completion deadline.
func NewDistributed(store Store, pubsub PubSub, keyPrefix string, taskTimeout time.Duration, logger *zap.Logger, provider metrics.Provider) *Distributed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}
	return &Distributed{
		store:       store,
		pubsub:      pubsub,
		keyPrefix:   keyPrefix,
		taskTimeout: taskTimeout,
		logger:      logger,
		metrics:     provider,
		waiters:     make(map[string]struct{}),
	}
}

func (d *Distributed) taskKey(taskID string) string       { return d.keyPrefix + "task:" + taskID }
func (d *Distributed) completionChan(taskID string) string { return d.keyPrefix + "completion:" + taskID }

// CreateTask implements Coordinator.
func (d *Distributed) CreateTask(ctx context.Context, typeTag string) (string, error) {
	taskID := uuid.New().String()
	rec := envelope.Record{
		TaskID:          taskID,
		ResponseTypeTag: typeTag,
		CreatedAt:       time.Now().UnixNano(),
		Status:          envelope.StatusPending,
	}

	data, err := envelope.EncodeRecord(rec)
	if err != nil {
		return "", coordinatorInternal("encode initial record", err)
	}

	if err := d.store.Set(ctx, d.taskKey(taskID), data, d.taskTimeout); err != nil {
		return "", coordinatorInternal("store initial record", err)
	}

	d.metrics.Counter(metrics.TasksCreated).Add(1)
	return taskID, nil
}

// CompleteTask implements Coordinator. A missing record (expired or already
// cleaned up) is logged and treated as success: the worker must never fail
// for a missing waiter. Publishing happens strictly after the store write
// so a subscriber that receives the notification is guaranteed a
// subsequent read of the key returns a terminal record.
func (d *Distributed) CompleteTask(ctx context.Context, taskID string, success *Success, failure *Failure) error {
	key := d.taskKey(taskID)

	data, found, err := d.store.Get(ctx, key)
	if err != nil {
		return coordinatorInternal("read record before completion", err)
	}
	if !found {
		d.logger.Warn("complete_task for missing/expired record", zap.String("task_id", taskID))
		return nil
	}

	rec, err := envelope.DecodeRecord(data)
	if err != nil {
		return coordinatorInternal("decode record before completion", err)
	}
	if rec.Status != envelope.StatusPending {
		d.logger.Debug("complete_task on already-terminal record", zap.String("task_id", taskID))
		return nil
	}

	rec.CompletedAt = time.Now().UnixNano()

	switch {
	case success != nil:
		rec.Status = envelope.StatusCompleted
		rec.Result = success.Payload
		rec.HasResult = true
		d.metrics.Counter(metrics.TasksCompleted).Add(1)
	case failure != nil:
		rec.Status = envelope.StatusFailed
		rec.Error = &envelope.ErrorInfo{Kind: failure.Kind, Message: failure.Message}
		if failure.Origin != nil {
			rec.Error.Origin = *failure.Origin
			rec.Error.HasOrigin = true
		}
		d.metrics.Counter(metrics.TasksFailed).Add(1)
	default:
		return invalidArgument("success_or_failure", "exactly one of success/failure must be provided")
	}

	out, err := envelope.EncodeRecord(rec)
	if err != nil {
		return coordinatorInternal("encode terminal record", err)
	}

	if err := d.store.Set(ctx, key, out, d.taskTimeout); err != nil {
		return coordinatorInternal("store terminal record", err)
	}

	if err := d.pubsub.Publish(ctx, d.completionChan(taskID), out); err != nil {
		return coordinatorInternal("publish completion", err)
	}
	return nil
}

// WaitForCompletion implements Coordinator. It subscribes before reading so
// a completion published between an earlier create and this subscribe is
// never lost (§4.C's race-safe requirement, tested by S7).
func (d *Distributed) WaitForCompletion(ctx context.Context, taskID string) ([]byte, error) {
	start := time.Now()
	defer func() {
		d.metrics.Histogram(metrics.WaitDurationSeconds).Record(time.Since(start).Seconds())
	}()

	if err := d.registerWaiter(taskID); err != nil {
		return nil, err
	}
	defer d.unregisterWaiter(taskID)

	sub, err := d.pubsub.Subscribe(ctx, d.completionChan(taskID))
	if err != nil {
		return nil, coordinatorInternal("subscribe to completion channel", err)
	}
	defer sub.Close()

	data, found, err := d.store.Get(ctx, d.taskKey(taskID))
	if err != nil {
		return nil, coordinatorInternal("read record after subscribe", err)
	}
	if !found {
		return nil, envelope.NewError(envelope.KindNotFound, "unknown task_id: "+taskID, nil)
	}

	rec, err := envelope.DecodeRecord(data)
	if err != nil {
		return nil, coordinatorInternal("decode record after subscribe", err)
	}

	if rec.Status != envelope.StatusPending {
		return outcomeToResult(rec.Outcome())
	}

	remaining := d.taskTimeout - time.Since(time.Unix(0, rec.CreatedAt))
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case msg, ok := <-sub.Messages():
		if !ok {
			return nil, coordinatorInternal("subscription closed unexpectedly", nil)
		}
		terminal, err := envelope.DecodeRecord(msg)
		if err != nil {
			return nil, coordinatorInternal("decode published completion", err)
		}
		return outcomeToResult(terminal.Outcome())

	case <-timer.C:
		d.metrics.Counter(metrics.TasksTimedOut).Add(1)
		return nil, envelope.NewError(envelope.KindTimeout, "task exceeded its deadline", nil)

	case <-ctx.Done():
		return nil, envelope.NewError(envelope.KindCancelled, "wait_for_completion cancelled", nil)
	}
}

func outcomeToResult(o envelope.Outcome) ([]byte, error) {
	if o.Completed {
		return o.Payload, nil
	}
	return nil, o.Err
}

func (d *Distributed) registerWaiter(taskID string) error {
	d.waitersMu.Lock()
	defer d.waitersMu.Unlock()
	if _, ok := d.waiters[taskID]; ok {
		return invalidArgument("task_id", "a waiter is already suspended on this task_id")
	}
	d.waiters[taskID] = struct{}{}
	return nil
}

func (d *Distributed) unregisterWaiter(taskID string) {
	d.waitersMu.Lock()
	delete(d.waiters, taskID)
	d.waitersMu.Unlock()
}

// CleanupTask implements Coordinator. Best-effort: the store's own TTL is
// the backstop if this call is lost (crash, network partition).
func (d *Distributed) CleanupTask(ctx context.Context, taskID string) error {
	if err := d.store.Delete(ctx, d.taskKey(taskID)); err != nil {
		return coordinatorInternal("delete record", err)
	}
	return nil
}

// Close is a no-op for Distributed: there is no local sweeper goroutine:
// the remote store's TTL is the sole expiration mechanism (§4.C).
func (d *Distributed) Close() error { return nil }
