/*
Package manager implements the Corral control-plane core.

The Manager is the single write path for cluster state. Every mutation
validates its input, persists through the store, and publishes an event, so
the REST API, the lease service and the reconciler all share one set of
semantics.

# Run Lifecycle

Runs move pending -> assigned -> running -> terminal. Assignment and start
are owner-checked: only the node holding the run may advance it, and a stale
worker that lost its lease gets a not-owner error rather than silently
clobbering the new owner's progress.

Retry accounting is authoritative here, not on workers. A retryable failure
requeues the run (pending, retry count incremented) until DefaultMaxRetries
is spent, after which the run fails terminally. Requeues driven by the
reconciler (dead node, expired lease) draw from the same budget so a
crash-looping run cannot cycle forever.

# Node Lifecycle

Workers register with a stable self-chosen ID and refresh liveness via
heartbeats. Heartbeat timestamps are always server time; worker clocks are
never trusted for liveness.
*/
package manager
