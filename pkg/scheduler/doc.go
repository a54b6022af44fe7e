/*
Package scheduler implements least-loaded placement with metadata constraints.

Selection runs in three steps: filter nodes that are active, recently
heartbeated and matching every placement constraint; compute each survivor's
load; order by load percent ascending, free slots descending, node ID
ascending. The first candidate wins, so placement is deterministic for a
given cluster state.

Load reconciles two sources: the active-run count the node reported on its
last heartbeat, and the count of assigned/running runs the control plane has
on record for that node. The higher of the two is used, which keeps a node
with a stale heartbeat from looking emptier than it is. A node advertising
zero slots is treated as fully loaded.
*/
package scheduler
