/*
Package api exposes the control-plane REST surface on chi.

Routes live under /v1: agents (CRUD plus version publishing), deployments,
nodes (registration, heartbeats, load), runs (creation, inspection and
administrative transitions) and an SSE event stream. /healthz, /readyz and
/metrics sit at the root.

Errors map from errdefs kinds to status codes: validation 400, not-found
404, conflict 409, not-owner 403, transient 503, everything else 500. The
body is always {"error": "..."}.

Run transition endpoints (:complete, :fail, :cancel) mirror the gRPC lease
service for operators and tests; workers normally report through gRPC.
*/
package api
