/*
Package connector binds agents to the outside world.

The input side is a Redis Streams consumer group: producers XADD work onto a
stream, workers read through XREADGROUP, and unacked messages are reclaimed
with XAUTOCLAIM after an idle window. Delivery counts come from the pending
entries list, so a message that keeps crashing its consumer is recognizable
as poison no matter which worker sees it. Dead-lettered messages land on
"<stream>:dead" with the reason attached.

The output side is an HTTP sink. Deliveries are POSTs carrying an
Idempotency-Key derived from the run and message IDs; the key is identical
across retries so the receiving system can deduplicate. Connection errors,
408, 429 and 5xx are retried with exponential backoff, other 4xx responses
are final.
*/
package connector
