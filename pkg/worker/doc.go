// Package worker implements the Corral node runtime.
//
// # Lifecycle
//
// A worker registers itself with the control plane over REST, then holds a
// gRPC Pull stream open against the lease service. Each lease delivered on
// the stream is acked only after a local concurrency slot is held, so the
// worker never acknowledges work it cannot start. Heartbeats report active
// runs and free slots every 30 seconds; on shutdown the worker drains
// in-flight runs for a bounded window and sends a final draining
// heartbeat so the scheduler stops offering it work immediately.
//
// # Message Pipeline
//
// Each leased run flows through the Pipeline: receive one message from the
// agent's input connector, dead-letter it if its delivery count marks it as
// poison, invoke the agent in a sandboxed child process, deliver the output
// through the agent's sink with an idempotency key, then ack. Failures are
// classified into retryable (message abandoned, lease failed with
// retryable=true) and non-retryable (message dead-lettered, lease failed
// terminally) so a poison message can never loop forever.
//
// # Stream Recovery
//
// A dropped pull stream is re-dialed with exponential backoff capped at 60
// seconds plus jitter. Runs orphaned by a crash are recovered by the
// control-plane reconciler once their leases expire.
package worker
