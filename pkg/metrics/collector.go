package metrics

import (
	"time"

	"github.com/corral-dev/corral/pkg/storage"
)

// Collector periodically samples control-plane state into the gauges
type Collector struct {
	store  storage.Store
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectAgentMetrics()
	c.collectDeploymentMetrics()
	c.collectRunMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes, err := c.store.ListNodes()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, node := range nodes {
		counts[string(node.Status.State)]++
	}
	for state, count := range counts {
		NodesTotal.WithLabelValues(state).Set(float64(count))
	}
}

func (c *Collector) collectAgentMetrics() {
	agents, err := c.store.ListAgents()
	if err != nil {
		return
	}
	AgentsTotal.Set(float64(len(agents)))
}

func (c *Collector) collectDeploymentMetrics() {
	deployments, err := c.store.ListDeployments()
	if err != nil {
		return
	}
	DeploymentsTotal.Set(float64(len(deployments)))
}

func (c *Collector) collectRunMetrics() {
	runs, err := c.store.ListRuns()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, run := range runs {
		counts[string(run.Status)]++
	}
	for status, count := range counts {
		RunsTotal.WithLabelValues(status).Set(float64(count))
	}
}
