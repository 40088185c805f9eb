// Package metrics defines the observability contracts implemented by the
// infra sinks.
package metrics

import (
	"time"
)

// MutationRecord captures one mutation command for observability purposes.
type MutationRecord struct {
	CommandID  string
	Op         string
	BookingIDs []string
	DriverID   string
	Status     string
	Error      string
	Latency    time.Duration
	Time       time.Time
}

// MutationSink records mutation outcomes.
type MutationSink interface {
	RecordMutation(records []MutationRecord) error
}

// BoardRecompute captures one derived-state recomputation cycle.
type BoardRecompute struct {
	Bookings   int
	Drivers    int
	Unassigned int
	Duration   time.Duration
	Time       time.Time
}

// BoardRecorder records board recomputation cycles. Sinks implement it in
// addition to MutationSink when they can.
type BoardRecorder interface {
	RecordBoardRecompute(rec BoardRecompute) error
}

// NopSink implements MutationSink and BoardRecorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordMutation([]MutationRecord) error     { return nil }
func (NopSink) RecordBoardRecompute(BoardRecompute) error { return nil }
