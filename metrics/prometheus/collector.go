// Package prometheus bridges the engine's internal counters into a
// prometheus.Collector so they can be registered alongside the rest of a
// service's metrics and served by promhttp.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authkit "github.com/pacestacks/authkit"
)

const namespace = "authkit"

// Collector exposes an Engine's counters to Prometheus. Counters are read
// from a snapshot on every scrape; the engine itself is never locked.
type Collector struct {
	metrics *authkit.Metrics
	descs   map[authkit.MetricID]*prometheus.Desc
}

// NewCollector builds a Collector over the engine's metrics store.
func NewCollector(engine *authkit.Engine) *Collector {
	descs := make(map[authkit.MetricID]*prometheus.Desc)
	for _, id := range authkit.MetricIDs() {
		name := authkit.MetricName(id)
		descs[id] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name+"_total"),
			"Total "+name+" events.",
			nil, nil,
		)
	}
	return &Collector{metrics: engine.Metrics(), descs: descs}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()
	for id, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(snap.Counters[id]))
	}
}

// Handler registers the collector on a private registry and returns a
// scrape handler, for services that do not already run one.
func Handler(engine *authkit.Engine) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(engine)); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}
