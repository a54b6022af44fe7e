/*
Package reconciler restores cluster invariants after failures.

Two sweeps run every tick. The node sweep marks workers with lapsed
heartbeats unreachable and requeues their in-flight runs. The lease sweep
requeues assigned or running runs whose Redis lease has vanished, which
covers worker crashes that never trip the heartbeat window as well as leases
that simply timed out.

Requeues go through the manager's retry accounting, so a run bounced
repeatedly by dying nodes eventually fails terminally instead of cycling
forever.
*/
package reconciler
