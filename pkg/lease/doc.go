/*
Package lease implements exclusive, time-bounded run ownership on Redis.

A lease is a Redis key corral:lease:<runID> whose value is the owning node
ID and whose TTL is the lease duration. Mutual exclusion falls out of SET NX:
at most one worker holds a given run at a time, and a crashed worker's lease
vanishes when its TTL lapses, after which the reconciler requeues the run.

# Ownership Checks

Release and extend are owner-checked with Lua compare-and-act scripts so a
worker that lost its lease (expiry plus re-acquisition by another node)
cannot delete or extend the new owner's lease. The control plane has an
unconditional AdminReleaseLease for its reclaim path.

# Advisory Locks

The same primitive doubles as a general advisory lock under corral:lock:<key>.
The dispatcher uses it to serialize its scheduling tick across control-plane
replicas.
*/
package lease
