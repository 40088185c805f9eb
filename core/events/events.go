// Package events defines the board events emitted on the session bus.
//
// Available event types:
//   - SnapshotEvent: a new feed snapshot was applied
//   - MutationEvent: a mutation command finished
//   - UndoEvent: an undo restoration finished
//   - ToastEvent: an operator-visible notification
package events

import (
	"time"

	"github.com/shuttleops/dispatchboard/core/feed"
	"github.com/shuttleops/dispatchboard/core/model"
)

// SnapshotEvent is published when the session applies a feed snapshot.
type SnapshotEvent struct {
	Snapshot feed.Snapshot
	Applied  time.Time
}

// MutationEvent reports the outcome of one mutation command.
// Op is one of "assign", "unassign", "status", "pricing", "sms".
type MutationEvent struct {
	CommandID  string
	Op         string
	BookingIDs []string
	DriverID   string
	Err        error
	Latency    time.Duration
}

// UndoEvent reports an undo restoration. Restored is nil when the undo
// returned the booking to unassigned.
type UndoEvent struct {
	BookingID string
	Restored  *model.Assignment
	Err       error
}

// ToastLevel grades operator notifications.
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// ToastEvent is an operator-visible notification. Every failed
// operator-initiated action produces one; silent failures are not allowed.
type ToastEvent struct {
	Level  ToastLevel
	Title  string
	Detail string
}
