// Package dispatch matches incoming prompt/embedding requests to free
// backend servers and queues the ones that cannot be placed immediately.
// It is structured into small files by concern:
//
//   - dispatch.go: Dispatcher type, constructor, request/result types.
//   - place.go: DispatchOrQueue entry point and server selection policy.
//   - queue.go: pending queue, re-entrancy-guarded scan, queue snapshot.
//   - execute.go: backend invocation, load bookkeeping, history write.
//   - errors.go: error types and predicates.
//   - metrics.go: Prometheus collectors.
//
// All placement decisions (find a free server, increment its load, append
// or remove a queue item) run under one mutex, so no partial scan is ever
// observed. Executions themselves run concurrently; each completion
// decrements the server's load and re-triggers a queue scan, which is how
// freed capacity is offered back to waiting requests without a poller.
package dispatch
