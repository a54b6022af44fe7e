/*
Package metrics provides Prometheus metrics and health checking for Corral.

All collectors are package-level and registered at init, so any component can
record observations by importing the package. Gauges describing cluster state
(nodes, agents, deployments, runs) are refreshed from the store by the
Collector every 15 seconds; counters and histograms are updated inline at the
call sites.

# Health Checking

Components self-report through RegisterComponent/UpdateComponent. The
/healthz handler aggregates every registered component, while /readyz only
gates on the critical set (storage, leases, api) so the control plane is not
marked unready by a degraded optional subsystem.
*/
package metrics
