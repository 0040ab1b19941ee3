package rendezvous

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndyer/rendezvous/coordinator"
	"github.com/ndyer/rendezvous/envelope"
	"github.com/ndyer/rendezvous/localengine"
)

func newTestScheduler(t *testing.T, disp HandlerDispatcher) (*Scheduler, *coordinator.Memory) {
	t.Helper()
	coord := coordinator.NewMemory(2*time.Second, 0, nil, nil)
	engine := localengine.NewEngine(0, nil, nil)
	s, err := NewScheduler(engine, disp, coord, WithInMemoryCoordination(), WithDefaultTaskTimeout(2*time.Second))
	require.NoError(t, err)
	return s, coord
}

// TestEnqueueWithResult_HappyPath mirrors S2: the synchronous-looking
// wrapper returns the handler's value and leaves no task record behind.
func TestEnqueueWithResult_HappyPath(t *testing.T) {
	disp := &stubDispatcher{dispatch: func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(echoRequest)
		return req.Payload, nil
	}}
	s, _ := newTestScheduler(t, disp)
	defer s.Close()

	got, err := EnqueueWithResult[string](context.Background(), s, "Echo", echoRequest{Payload: "hello"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

type echoRequest struct {
	Payload string
}

// TestEnqueueWithResult_ExhaustionRaisesHandlerFailed mirrors S4: a handler
// that always errors surfaces HandlerFailed to the waiting caller after
// exhausting its retry budget.
func TestEnqueueWithResult_ExhaustionRaisesHandlerFailed(t *testing.T) {
	disp := &stubDispatcher{dispatch: func(ctx context.Context, request interface{}) (interface{}, error) {
		return nil, errors.New("always fails")
	}}
	s, _ := newTestScheduler(t, disp)
	defer s.Close()

	_, err := EnqueueWithResult[int](context.Background(), s, "Always", 1, 1)
	var rerr *envelope.RendezvousError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, envelope.KindHandlerFailed, rerr.Kind)
}

// TestEnqueueWithResult_CleanupRunsOnTimeout ensures cleanup_task still runs
// when wait_for_completion itself raises Timeout (no completion ever
// arrives) — property 8, exercised via a handler that never returns in
// time for a very short task deadline.
func TestEnqueueWithResult_CleanupRunsOnTimeout(t *testing.T) {
	block := make(chan struct{})

	disp := &stubDispatcher{dispatch: func(ctx context.Context, request interface{}) (interface{}, error) {
		<-block
		return "late", nil
	}}
	coord := &countingCoordinator{Coordinator: coordinator.NewMemory(30*time.Millisecond, 0, nil, nil)}
	engine := localengine.NewEngine(0, nil, nil)
	s, err := NewScheduler(engine, disp, coord, WithInMemoryCoordination(), WithDefaultTaskTimeout(30*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()
	defer close(block)

	_, err = EnqueueWithResult[string](context.Background(), s, "Slow", "x", 0)
	var rerr *envelope.RendezvousError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, envelope.KindTimeout, rerr.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&coord.cleanupTaskCalls))
}

func TestScheduler_Enqueue_FireAndForget(t *testing.T) {
	var ran int32
	disp := &stubDispatcher{dispatch: func(ctx context.Context, request interface{}) (interface{}, error) {
		atomic.AddInt32(&ran, 1)
		return nil, nil
	}}
	s, _ := newTestScheduler(t, disp)
	defer s.Close()

	jobID, err := s.Enqueue(context.Background(), "Notify", "x")
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, time.Millisecond)
}

func TestScheduler_AddOrUpdate_TriggerAndRemove(t *testing.T) {
	var calls int32
	disp := &stubDispatcher{dispatch: func(ctx context.Context, request interface{}) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	}}
	s, _ := newTestScheduler(t, disp)
	defer s.Close()

	require.NoError(t, s.AddOrUpdate("nightly", "Report", "x", "0 0 * * *", time.UTC))
	require.NoError(t, s.Trigger("nightly"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Remove("nightly"))
	assert.Error(t, s.Trigger("nightly"))
}

// TestScheduler_Notify_FansOutAndPropagatesFailure exercises §6's Handler
// Dispatcher contract: Notify bypasses the Job Engine and Coordinator
// entirely, delivering straight to Publish and returning its error unchanged.
func TestScheduler_Notify_FansOutAndPropagatesFailure(t *testing.T) {
	var got interface{}
	disp := &stubDispatcher{
		dispatch: func(ctx context.Context, request interface{}) (interface{}, error) { return nil, nil },
		publish: func(ctx context.Context, notification interface{}) error {
			got = notification
			return nil
		},
	}
	s, _ := newTestScheduler(t, disp)
	defer s.Close()

	require.NoError(t, s.Notify(context.Background(), "orders.updated"))
	assert.Equal(t, "orders.updated", got)

	disp.publish = func(ctx context.Context, notification interface{}) error {
		return errors.New("no handler reachable")
	}
	assert.EqualError(t, s.Notify(context.Background(), "orders.updated"), "no handler reachable")
}

// countingCoordinator wraps a coordinator.Coordinator and counts CreateTask
// and CleanupTask calls, letting a test assert that an invalid call never
// reached it, or that cleanup ran.
type countingCoordinator struct {
	coordinator.Coordinator
	createTaskCalls  int32
	cleanupTaskCalls int32
}

func (c *countingCoordinator) CreateTask(ctx context.Context, typeTag string) (string, error) {
	atomic.AddInt32(&c.createTaskCalls, 1)
	return c.Coordinator.CreateTask(ctx, typeTag)
}

func (c *countingCoordinator) CleanupTask(ctx context.Context, taskID string) error {
	atomic.AddInt32(&c.cleanupTaskCalls, 1)
	return c.Coordinator.CleanupTask(ctx, taskID)
}

// TestEnqueueWithResult_InvalidArgumentIsSynchronous mirrors S9: an invalid
// display_name/request/retry_budget fails before create_task runs and
// before any job reaches the engine — no coordinator record, no enqueue.
func TestEnqueueWithResult_InvalidArgumentIsSynchronous(t *testing.T) {
	var dispatched int32
	disp := &stubDispatcher{dispatch: func(ctx context.Context, request interface{}) (interface{}, error) {
		atomic.AddInt32(&dispatched, 1)
		return "unused", nil
	}}
	mem := coordinator.NewMemory(time.Minute, 0, nil, nil)
	coord := &countingCoordinator{Coordinator: mem}
	engine := localengine.NewEngine(0, nil, nil)
	s, err := NewScheduler(engine, disp, coord, WithInMemoryCoordination())
	require.NoError(t, err)
	defer s.Close()

	cases := []struct {
		name        string
		displayName string
		request     interface{}
		retryBudget int
	}{
		{"empty display_name", "", "x", 0},
		{"nil request", "Echo", nil, 0},
		{"negative retry_budget", "Echo", "x", -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EnqueueWithResult[string](context.Background(), s, tc.displayName, tc.request, tc.retryBudget)
			var rerr *envelope.RendezvousError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, envelope.KindInvalidArgument, rerr.Kind)
		})
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&dispatched) == 0 }, 100*time.Millisecond, time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&coord.createTaskCalls))
}

func TestNewScheduler_RejectsNilEngine(t *testing.T) {
	disp := &stubDispatcher{dispatch: func(ctx context.Context, request interface{}) (interface{}, error) { return nil, nil }}
	coord := coordinator.NewMemory(time.Minute, 0, nil, nil)
	defer coord.Close()

	_, err := NewScheduler(nil, disp, coord, WithInMemoryCoordination())
	var rerr *envelope.RendezvousError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, envelope.KindInvalidArgument, rerr.Kind)
}
