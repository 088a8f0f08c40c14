// Package metrics provides Prometheus instrumentation for probe runs.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the probe collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	chainsTotal        *prometheus.CounterVec
	urlsCheckedTotal   prometheus.Counter
	urlsWorkingTotal   prometheus.Counter
	stageFailuresTotal *prometheus.CounterVec
	ipv6Total          prometheus.Counter
	probeDuration      prometheus.Histogram
}

// New creates the collectors and registers them on a new registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		chainsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chains_total",
				Help:      "Chains processed, by terminal state",
			},
			[]string{"state"},
		),
		urlsCheckedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_checked_total",
			Help:      "Endpoint URLs probed",
		}),
		urlsWorkingTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_working_total",
			Help:      "Endpoint URLs that passed connectivity and RPC checks",
		}),
		stageFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probe_stage_failures_total",
				Help:      "Probes that failed, by first failing stage",
			},
			[]string{"stage"},
		),
		ipv6Total: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_ipv6_total",
			Help:      "Working endpoints whose host has at least one AAAA record",
		}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Duration of the connectivity and RPC stages of a probe",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
	}

	reg.MustRegister(
		m.chainsTotal,
		m.urlsCheckedTotal,
		m.urlsWorkingTotal,
		m.stageFailuresTotal,
		m.ipv6Total,
		m.probeDuration,
	)
	return m
}

// RecordChain counts a chain reaching its terminal state.
func (m *Metrics) RecordChain(state string) {
	if m == nil {
		return
	}
	m.chainsTotal.WithLabelValues(state).Inc()
}

// RecordProbe counts one probed URL.
func (m *Metrics) RecordProbe(working bool, failedStage string, ipv6 bool, latency time.Duration) {
	if m == nil {
		return
	}
	m.urlsCheckedTotal.Inc()
	m.probeDuration.Observe(latency.Seconds())
	if !working {
		m.stageFailuresTotal.WithLabelValues(failedStage).Inc()
		return
	}
	m.urlsWorkingTotal.Inc()
	if ipv6 {
		m.ipv6Total.Inc()
	}
}

// Gatherer returns the registry backing these metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{})
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Gatherer()); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
