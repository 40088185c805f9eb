package board

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	recomputeLatency prometheus.Histogram
	queueSize        prometheus.Gauge
	snapshotsApplied prometheus.Counter
	feedErrors       prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, prometheus.Gauge, prometheus.Counter, prometheus.Counter) {
	lat := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "board_recompute_latency_seconds",
		Help:    "Latency of full board recomputation from a snapshot",
		Buckets: prometheus.DefBuckets,
	})
	queue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "board_unassigned_queue_size",
		Help: "Bookings currently in the unassigned queue",
	})
	applied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_snapshots_applied_total",
		Help: "Feed snapshots applied to the board",
	})
	ferr := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_feed_errors_total",
		Help: "Feed subscription errors surfaced as a degraded board",
	})
	return lat, queue, applied, ferr
}

func init() {
	recomputeLatency, queueSize, snapshotsApplied, feedErrors = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers board metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(recomputeLatency, queueSize, snapshotsApplied, feedErrors)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	recomputeLatency, queueSize, snapshotsApplied, feedErrors = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
