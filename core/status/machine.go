// Package status implements the booking status state machine: which
// transitions are legal, and which require a reason code before submission.
package status

import (
	"github.com/shuttleops/dispatchboard/core/boarderr"
	"github.com/shuttleops/dispatchboard/core/model"
)

type pair struct {
	from, to model.BookingStatus
}

// transitions is the fixed, total transition table. Every non-terminal
// status may advance one operational step, step back one (a correction), or
// cancel. Terminal statuses have no outgoing edges.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:         {model.StatusAwaitingPayment, model.StatusCancelled},
	model.StatusAwaitingPayment: {model.StatusConfirmed, model.StatusPending, model.StatusCancelled},
	model.StatusConfirmed:       {model.StatusAssigned, model.StatusAwaitingPayment, model.StatusCancelled},
	model.StatusAssigned:        {model.StatusEnRoute, model.StatusConfirmed, model.StatusCancelled},
	model.StatusEnRoute:         {model.StatusArrived, model.StatusAssigned, model.StatusCancelled},
	model.StatusArrived:         {model.StatusOnTrip, model.StatusEnRoute, model.StatusCancelled},
	model.StatusOnTrip:          {model.StatusCompleted, model.StatusArrived, model.StatusCancelled},
	model.StatusCompleted:       {},
	model.StatusCancelled:       {},
}

// alwaysReason lists target statuses that demand a reason code regardless of
// the originating status.
var alwaysReason = map[model.BookingStatus]bool{
	model.StatusCancelled: true,
}

// sensitive lists (current, next) pairs that demand a reason code: backing
// out of an assignment or reverting an in-progress trip step.
var sensitive = map[pair]bool{
	{model.StatusAssigned, model.StatusConfirmed}: true,
	{model.StatusEnRoute, model.StatusAssigned}:   true,
	{model.StatusArrived, model.StatusEnRoute}:    true,
	{model.StatusOnTrip, model.StatusArrived}:     true,
}

// CanTransition reports whether moving from current to next is legal.
// Unknown statuses have no legal transitions.
func CanTransition(current, next model.BookingStatus) bool {
	for _, allowed := range transitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedNext returns the statuses reachable from current, in operational
// order (forward step first, then correction, then cancel). The returned
// slice is a copy.
func AllowedNext(current model.BookingStatus) []model.BookingStatus {
	return append([]model.BookingStatus(nil), transitions[current]...)
}

// RequiresReason reports whether the (current, next) transition demands a
// reason code before submission.
func RequiresReason(current, next model.BookingStatus) bool {
	return alwaysReason[next] || sensitive[pair{current, next}]
}

// Validate rejects an illegal transition, and a reason-required transition
// submitted without a reason code, as ValidationErrors. It is evaluated
// before any mutation call is issued.
func Validate(current, next model.BookingStatus, reasonCode string) error {
	if !CanTransition(current, next) {
		return boarderr.NewValidation("status", "cannot move %s to %s", current, next)
	}
	if reasonCode == "" && RequiresReason(current, next) {
		return boarderr.NewValidation("reasonCode", "moving %s to %s requires a reason code", current, next)
	}
	return nil
}

// BulkRequiresReason reports whether applying next to every booking in the
// selection needs a reason code. The gate fails closed: one reason-required
// booking makes the whole bulk submission reason-required.
func BulkRequiresReason(bookings []model.Booking, next model.BookingStatus) bool {
	for _, b := range bookings {
		if RequiresReason(b.Status, next) {
			return true
		}
	}
	return false
}

// ValidateBulk checks every booking in the selection against the transition
// table and the bulk reason gate. The first failure aborts the whole
// operation; no partial enforcement.
func ValidateBulk(bookings []model.Booking, next model.BookingStatus, reasonCode string) error {
	for _, b := range bookings {
		if !CanTransition(b.Status, next) {
			return boarderr.NewValidation("status", "booking %s cannot move %s to %s", b.ID, b.Status, next)
		}
	}
	if reasonCode == "" && BulkRequiresReason(bookings, next) {
		return boarderr.NewValidation("reasonCode", "selection includes a transition that requires a reason code")
	}
	return nil
}
