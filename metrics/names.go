package metrics

// Instrument names used across the coordinator and bridge. Centralized here
// so the Noop, Basic, and Prom providers all key on the same strings and a
// dashboard built against one is valid against the others.
const (
	// TasksCreated counts successful CreateTask calls.
	TasksCreated = "rendezvous_tasks_created_total"
	// TasksCompleted counts successful terminal transitions.
	TasksCompleted = "rendezvous_tasks_completed_total"
	// TasksFailed counts Failed transitions delivered through CompleteTask;
	// it carries no per-ErrorKind breakdown, and timeouts are counted by
	// TasksTimedOut instead.
	TasksFailed = "rendezvous_tasks_failed_total"
	// TasksTimedOut counts Timeout outcomes: an in-memory task forced to
	// Timeout by its per-task timer or by the sweeper, or a distributed
	// wait that reached its deadline.
	TasksTimedOut = "rendezvous_tasks_timed_out_total"
	// BridgeRetries counts additional handler attempts beyond the first.
	BridgeRetries = "rendezvous_bridge_retries_total"
	// BridgeInflight tracks the number of Bridge invocations currently
	// dispatching or awaiting a retry backoff.
	BridgeInflight = "rendezvous_bridge_inflight"
	// WaitDurationSeconds records how long WaitForCompletion blocked.
	WaitDurationSeconds = "rendezvous_wait_duration_seconds"
)
