// Package metrics records enrichment run counters in a Prometheus registry
// that can be dumped in textfile-collector format at the end of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups  *prometheus.CounterVec
	RemoteCalls   *prometheus.CounterVec
	RemoteLatency *prometheus.HistogramVec
	Rows          *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "place_enrich_cache_lookups_total",
				Help: "Blob cache lookups by namespace and result",
			},
			[]string{"namespace", "result"},
		),
		RemoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "place_enrich_remote_calls_total",
				Help: "Google Maps Platform calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		RemoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "place_enrich_remote_call_duration_seconds",
				Help:    "Google Maps Platform call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "place_enrich_rows_total",
				Help: "Output rows by enrichment status",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(m.CacheLookups, m.RemoteCalls, m.RemoteLatency, m.Rows)
	return m
}

// ObserveCacheLookup counts a cache hit or miss.
func (m *Metrics) ObserveCacheLookup(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(namespace, result).Inc()
}

// ObserveRemoteCall counts a remote call and its latency.
func (m *Metrics) ObserveRemoteCall(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteCalls.WithLabelValues(operation, outcome).Inc()
	m.RemoteLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveRow counts one output row.
func (m *Metrics) ObserveRow(enriched bool) {
	if m == nil {
		return
	}
	status := "unresolved"
	if enriched {
		status = "enriched"
	}
	m.Rows.WithLabelValues(status).Inc()
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "metrics: write %s", path)
	}
	return nil
}
