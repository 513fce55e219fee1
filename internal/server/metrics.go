package server

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry        *prom.Registry
	rebuilds        prom.Counter
	rebuildFailures prom.Counter
	rebuildDuration prom.Histogram
	reloadClients   prom.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prom.NewRegistry(),
		rebuilds: prom.NewCounter(prom.CounterOpts{
			Namespace: "nvgtbuild",
			Name:      "docs_rebuilds_total",
			Help:      "Documentation builds run by the preview server",
		}),
		rebuildFailures: prom.NewCounter(prom.CounterOpts{
			Namespace: "nvgtbuild",
			Name:      "docs_rebuild_failures_total",
			Help:      "Documentation builds that returned an error",
		}),
		rebuildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "nvgtbuild",
			Name:      "docs_rebuild_duration_seconds",
			Help:      "Duration of documentation builds",
			Buckets:   prom.DefBuckets,
		}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "nvgtbuild",
			Name:      "reload_clients",
			Help:      "Browsers waiting on the live reload socket",
		}),
	}
	m.registry.MustRegister(m.rebuilds, m.rebuildFailures, m.rebuildDuration, m.reloadClients)
	m.registry.MustRegister(promcollect.NewGoCollector())
	return m
}

func (m *metrics) observeBuild(start time.Time, err error) {
	m.rebuilds.Inc()
	m.rebuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.rebuildFailures.Inc()
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
