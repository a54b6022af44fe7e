package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corral_nodes_total",
			Help: "Total number of worker nodes by state",
		},
		[]string{"state"},
	)

	AgentsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corral_agents_total",
			Help: "Total number of registered agents",
		},
	)

	DeploymentsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corral_deployments_total",
			Help: "Total number of deployments",
		},
	)

	RunsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "corral_runs_total",
			Help: "Total number of runs by status",
		},
		[]string{"status"},
	)

	// Dispatch metrics
	RunsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_runs_dispatched_total",
			Help: "Total number of runs dispatched to workers",
		},
	)

	RunsRetried = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_runs_retried_total",
			Help: "Total number of run retry requeues",
		},
	)

	LeasesExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_leases_expired_total",
			Help: "Total number of leases reclaimed after expiry",
		},
	)

	DispatchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corral_dispatch_latency_seconds",
			Help:    "Time from run creation to lease dispatch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "corral_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Worker metrics
	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_messages_processed_total",
			Help: "Total number of queue messages processed by outcome",
		},
		[]string{"outcome"},
	)

	MessagesDeadLettered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_messages_dead_lettered_total",
			Help: "Total number of messages dead-lettered by reason",
		},
		[]string{"reason"},
	)

	AgentInvocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "corral_agent_invocation_duration_seconds",
			Help:    "Agent execution duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	TokensConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "corral_tokens_consumed_total",
			Help: "Total LLM tokens consumed by direction (in/out)",
		},
		[]string{"direction"},
	)

	SinkRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corral_sink_retries_total",
			Help: "Total number of retried result deliveries",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(AgentsTotal)
	prometheus.MustRegister(DeploymentsTotal)
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunsDispatched)
	prometheus.MustRegister(RunsRetried)
	prometheus.MustRegister(LeasesExpired)
	prometheus.MustRegister(DispatchLatency)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(MessagesProcessed)
	prometheus.MustRegister(MessagesDeadLettered)
	prometheus.MustRegister(AgentInvocationDuration)
	prometheus.MustRegister(TokensConsumed)
	prometheus.MustRegister(SinkRetries)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
