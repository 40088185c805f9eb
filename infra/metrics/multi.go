package metrics

import coremetrics "github.com/shuttleops/dispatchboard/core/metrics"

// MultiSink fans mutation records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MutationSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MutationSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordMutation forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordMutation(records []coremetrics.MutationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordMutation(records); err != nil {
			return err
		}
	}
	return nil
}

// RecordBoardRecompute forwards recompute cycles to sinks that support them.
func (m *MultiSink) RecordBoardRecompute(rec coremetrics.BoardRecompute) error {
	for _, s := range m.Sinks {
		if br, ok := s.(coremetrics.BoardRecorder); ok {
			if err := br.RecordBoardRecompute(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
