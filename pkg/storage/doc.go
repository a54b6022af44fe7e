/*
Package storage provides BoltDB-backed persistence for Corral's control-plane
state.

The storage package implements the Store interface using BoltDB (bbolt) as
the underlying database, providing ACID transactions for agents, agent
versions, deployments, nodes and runs. All entities are serialized as JSON
and stored in separate buckets.

# Bucket Structure

	agents       key: agent ID
	versions     key: agent ID + NUL + version (prefix scans per agent)
	deployments  key: deployment ID
	nodes        key: node ID
	runs         key: run ID

# Transaction Model

Reads use db.View (concurrent, snapshot-isolated); writes use db.Update
(serialized, fsync on commit). Run terminal transitions (CompleteRun,
FailRun, CancelRun) are read-modify-write inside a single write transaction
so concurrent transitions cannot interleave, and they refuse to overwrite a
terminal status.

# Design Patterns

Upsert Pattern: Create and Update share the same Put; no separate exists
check is needed.

Idempotent Deletes: deleting a missing key is not an error, so cleanup paths
are safe to retry.

Cascade: DeleteAgent removes the agent's versions (prefix scan) and
deployments (filtered scan) in the same transaction. This is the only
cross-entity write the platform needs.

Failure semantics: open and I/O failures are surfaced as transient errors;
lookup misses are errdefs not-found; terminal-overwrite attempts are
errdefs conflicts.
*/
package storage
