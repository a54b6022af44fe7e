/*
Package events provides an in-process publish/subscribe broker for
control-plane state transitions.

The manager and lease service publish an Event for every entity transition
(run assigned, run completed, node unreachable, ...). Subscribers receive
events over buffered channels; slow subscribers are skipped rather than
blocking the control loop. The REST API exposes the feed as server-sent
events for operators and external consumers.
*/
package events
