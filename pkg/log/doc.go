/*
Package log provides structured logging for Corral built on zerolog.

A single global logger is initialized once at process start via Init and
shared by all packages. Child loggers carry contextual fields (component,
node_id, run_id, agent_id, lease_id) so log lines from the control plane,
the worker pull loop and per-lease pipelines can be correlated.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("leasesvc")
	logger.Info().Str("run_id", run.ID).Str("node_id", nodeID).Msg("lease assigned")

Console output (with colors and RFC3339 timestamps) is used for interactive
runs; JSON output is used in production so lines can be shipped as-is.
*/
package log
