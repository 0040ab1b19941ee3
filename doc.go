// Package rendezvous turns a fire-and-forget background-job engine into a
// two-way RPC: a caller submits a unit of work for asynchronous execution
// and optionally awaits its typed return value across process boundaries.
//
// Two collaborators do the work:
//   - The Bridge runs on a worker when the external Job Engine invokes it.
//     It dispatches the request to the user's Handler Dispatcher under a
//     bounded retry loop, then delivers a result-or-error envelope to the
//     Coordinator.
//   - The Coordinator (package coordinator) mediates the rendezvous between
//     that delivery and a waiting caller. Two interchangeable variants exist:
//     an in-memory coordinator for single-process deployments, and a
//     distributed coordinator backed by a key/value store plus pub/sub for
//     multi-process deployments.
//
// The Scheduler facade binds user-facing operations (Enqueue,
// EnqueueWithResult, Schedule, AddOrUpdate, Trigger, Remove) to the external
// Job Engine and the Coordinator. It contains no logic of its own beyond
// wiring: task creation, enqueue, wait, and cleanup.
//
// Constructors
//   - NewScheduler(engine, dispatcher, coordinator, opts...): build a
//     Scheduler, wiring an internal Bridge bound to dispatcher.
//   - NewBridge(dispatcher, coordinator, opts...): build a standalone Bridge
//     for use as a Job Engine's entry point on a worker.
//
// Defaults
// Unless overridden via Option, the following apply to a newly constructed
// Scheduler/Bridge pair:
//   - UseInMemoryCoordination: false (NewScheduler then requires
//     WithRemoteStoreEndpoint; otherwise pass WithInMemoryCoordination())
//   - DefaultTaskTimeout: 30 minutes
//   - DefaultRetryBudget: 0 (a single attempt, no retries)
//   - CleanupInterval: 5 minutes
//   - EnableConsoleLogging: true
//
// Non-goals: durable exactly-once delivery, transactional
// linkage between handler side effects and result publication, and
// multi-result/streaming responses.
package rendezvous
