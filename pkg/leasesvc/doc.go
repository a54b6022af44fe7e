/*
Package leasesvc implements the worker-facing gRPC dispatch plane.

Workers open one Pull stream per node, advertising how many leases they can
hold. A 500ms dispatch tick places pending runs oldest-first: pick the
least-loaded eligible node, acquire the Redis lease, mark the run assigned
and push the lease down the node's stream. The tick is serialized across
control-plane replicas with an advisory lock, so running several replicas is
safe even though only one dispatches at a time.

# Credits

Each stream carries dispatch credits equal to its advertised capacity.
Dispatch consumes a credit; Complete and Fail return one. This bounds the
leases in flight to a node independently of the worker-side semaphore.

# Failure Handling

Every dispatch step can be undone: if the stream is gone, the assignment
fails or the lease push does not fit, the lease is released and the run
stays (or returns to) pending for the next tick. Ack, Complete and Fail are
owner-checked through the manager; a stale worker is told to drop the work
rather than given an error that looks transient.
*/
package leasesvc
