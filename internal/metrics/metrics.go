// Package metrics holds the prometheus collectors shared by the job
// orchestrator and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var JobsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "notetree",
	Subsystem: "jobs",
	Name:      "submitted",
}, []string{"kind"})

var JobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "notetree",
	Subsystem: "jobs",
	Name:      "finished",
}, []string{"kind", "status"})

var JobsSuperseded = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "notetree",
	Subsystem: "jobs",
	Name:      "superseded",
}, []string{"kind"})

var QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "notetree",
	Subsystem: "jobs",
	Name:      "queue_depth",
})

var SearchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "notetree",
	Subsystem: "search",
	Name:      "duration_seconds",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
}, []string{"kind", "status"})

var DecodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "notetree",
	Subsystem: "decode",
	Name:      "errors",
}, []string{"reason"})

var HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "notetree",
	Subsystem: "http",
	Name:      "requests",
}, []string{"method", "route", "code"})

// Collectors lists every collector in this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		JobsSubmitted,
		JobsFinished,
		JobsSuperseded,
		QueueDepth,
		SearchDuration,
		DecodeErrors,
		HTTPRequests,
	}
}

// NewRegistry returns a registry holding the package collectors plus the
// standard process and Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)
	reg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return reg
}
