package nodepool

import "github.com/prometheus/client_golang/prometheus"

// poolMetrics tracks pool composition for operators scraping this client
// process, grounded on the teacher's own prometheus gauge/counter wiring.
type poolMetrics struct {
	syncedNodes      prometheus.Gauge
	blacklistedNodes prometheus.Gauge
	probeFailures    prometheus.Counter
}

func newPoolMetrics(reg *prometheus.Registry) *poolMetrics {
	m := &poolMetrics{
		syncedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iota_client_synced_nodes",
			Help: "Number of nodes currently in the synced set.",
		}),
		blacklistedNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "iota_client_blacklisted_nodes",
			Help: "Number of nodes currently blacklisted.",
		}),
		probeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "iota_client_probe_failures_total",
			Help: "Total number of failed node health probes.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.syncedNodes, m.blacklistedNodes, m.probeFailures)
	}
	return m
}
