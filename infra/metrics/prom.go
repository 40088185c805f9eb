package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/shuttleops/dispatchboard/core/metrics"
)

// PromSink records mutation and board events in Prometheus metrics.
type PromSink struct {
	mutations *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	queue     prometheus.Gauge
}

// NewPromSink registers board metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using the configured
// port.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_mutation_events_total",
		Help: "Total number of mutation commands recorded by the sink",
	}, []string{"op", "failed"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "board_mutation_sink_latency_seconds",
		Help:    "Mutation API latency as recorded by the sink",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	queue := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "board_recompute_unassigned",
		Help: "Unassigned queue size at the last recorded recompute",
	})

	if err := reg.Register(mutations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			mutations = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(queue); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			queue = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	return &PromSink{mutations: mutations, latency: latency, queue: queue}, nil
}

// RecordMutation increments the counters for each recorded command.
func (s *PromSink) RecordMutation(records []coremetrics.MutationRecord) error {
	for _, r := range records {
		failed := "false"
		if r.Error != "" {
			failed = "true"
		}
		s.mutations.WithLabelValues(r.Op, failed).Inc()
		s.latency.WithLabelValues(r.Op).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordBoardRecompute tracks the queue size of the latest recompute.
func (s *PromSink) RecordBoardRecompute(rec coremetrics.BoardRecompute) error {
	s.queue.Set(float64(rec.Unassigned))
	return nil
}
