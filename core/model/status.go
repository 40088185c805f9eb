package model

import "encoding/json"

// BookingStatus identifies a booking's position in its operational lifecycle.
type BookingStatus int

const (
	StatusUnknown BookingStatus = iota
	StatusPending
	StatusAwaitingPayment
	StatusConfirmed
	StatusAssigned
	StatusEnRoute
	StatusArrived
	StatusOnTrip
	StatusCompleted
	StatusCancelled
)

// String returns the wire representation of the status.
func (s BookingStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAwaitingPayment:
		return "awaiting_payment"
	case StatusConfirmed:
		return "confirmed"
	case StatusAssigned:
		return "assigned"
	case StatusEnRoute:
		return "en_route"
	case StatusArrived:
		return "arrived"
	case StatusOnTrip:
		return "on_trip"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus maps a wire status string to a BookingStatus. Unrecognised
// values map to StatusUnknown rather than erroring so a malformed feed
// record still renders.
func ParseStatus(s string) BookingStatus {
	switch s {
	case "pending":
		return StatusPending
	case "awaiting_payment":
		return StatusAwaitingPayment
	case "confirmed":
		return StatusConfirmed
	case "assigned":
		return StatusAssigned
	case "en_route":
		return StatusEnRoute
	case "arrived":
		return StatusArrived
	case "on_trip":
		return StatusOnTrip
	case "completed":
		return StatusCompleted
	case "cancelled":
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// MarshalJSON writes the wire string.
func (s BookingStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads the wire string, mapping unknown values to
// StatusUnknown.
func (s *BookingStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	*s = ParseStatus(str)
	return nil
}

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Tone returns the display tone used by board widgets for the status.
// Unknown statuses render neutrally.
func (s BookingStatus) Tone() string {
	switch s {
	case StatusPending, StatusAwaitingPayment:
		return "warning"
	case StatusConfirmed, StatusAssigned:
		return "info"
	case StatusEnRoute, StatusArrived, StatusOnTrip:
		return "active"
	case StatusCompleted:
		return "success"
	case StatusCancelled:
		return "danger"
	default:
		return "neutral"
	}
}
