package provisioning

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments provisioning runs. All collectors are registered on
// the registry passed to NewMetrics; NopMetrics returns an unregistered set
// for callers that do not scrape.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	NodesTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the provisioning collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.RunsTotal, m.StageDuration, m.NodesTotal)
	return m
}

// NopMetrics returns collectors that are not registered anywhere. Recording
// into them is cheap and safe.
func NopMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudplane",
			Name:      "runs_total",
			Help:      "Provisioning runs by result.",
		}, []string{"result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cloudplane",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of provisioning stages.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}, []string{"stage"}),
		NodesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudplane",
			Name:      "graph_nodes_total",
			Help:      "Graph node transitions by resulting state.",
		}, []string{"state"}),
	}
}
