package command

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	mutationLatency  *prometheus.HistogramVec
	mutationsIssued  *prometheus.CounterVec
	mutationFailures *prometheus.CounterVec
	undoDepth        prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mutation_latency_seconds",
			Help:    "Latency of mutation API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	issued := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutations_issued_total",
			Help: "Number of mutation commands issued",
		},
		[]string{"op"},
	)
	failed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mutation_failures_total",
			Help: "Number of mutation commands that failed",
		},
		[]string{"op"},
	)
	depth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "undo_stack_depth",
			Help: "Current depth of the assignment undo stack",
		},
	)
	return lat, issued, failed, depth
}

func init() {
	mutationLatency, mutationsIssued, mutationFailures, undoDepth = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers command metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(mutationLatency, mutationsIssued, mutationFailures, undoDepth)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	mutationLatency, mutationsIssued, mutationFailures, undoDepth = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
