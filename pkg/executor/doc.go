// Package executor runs agent invocations in sandboxed child processes.
//
// # Protocol
//
// The parent (the worker runtime) spawns one child per invocation, writes a
// JSON Request to its stdin and reads a single JSON Response line from its
// stdout. Stderr is captured for diagnostics only. The child enforces the
// agent's duration budget with a context deadline; the parent backs that up
// by killing the child's entire process group once the budget plus a grace
// period has passed.
//
// # Failure Classification
//
// A budget overrun or malformed child output is non-retryable: replaying
// the same message would hit the same wall, so the worker dead-letters it.
// Failures the child reports itself come back as a Response with
// Success=false and are classified by the worker from the error text.
package executor
