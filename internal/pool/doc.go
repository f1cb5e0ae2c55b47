// Package pool maintains the registry of configured backend servers: their
// availability as reported by the model cache, the models each one hosts,
// and the count of in-flight executions assigned to each. It is structured
// into small files by concern:
//
//   - pool.go: Registry type, constructor, read accessors.
//   - refresh.go: RefreshAll/RefreshOne and the periodic sweep.
//   - select.go: model-capability and free-slot selection policy.
//   - load.go: in-flight request counting.
//   - errors.go: error types and predicates.
//   - metrics.go: Prometheus collectors.
//
// The registry is the sole owner of server state; callers receive copies.
// Each server is modeled as having exactly one execution slot, so "free"
// means zero active requests.
package pool
