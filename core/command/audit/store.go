// Package audit persists an append-only log of mutation commands issued by
// the board, independent of the feed's own status history.
package audit

import (
	"context"
	"time"
)

// Record captures one mutation command and its outcome.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	CommandID  string    `json:"command_id"`
	Op         string    `json:"op"`
	BookingIDs []string  `json:"booking_ids"`
	DriverID   string    `json:"driver_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	ReasonCode string    `json:"reason_code,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start     time.Time
	End       time.Time
	BookingID string
	Op        string
}

// LogStore persists Records and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// matches applies the query filters to a record.
func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Op != "" && r.Op != q.Op {
		return false
	}
	if q.BookingID != "" {
		found := false
		for _, id := range r.BookingIDs {
			if id == q.BookingID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
