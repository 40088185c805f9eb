package model

import (
	"strings"
	"time"
)

// Booking represents a scheduled ride request as delivered by the live feed.
// All mutation happens through the command processor or by the feed
// reconciling an external change; the board never edits a Booking in place.
type Booking struct {
	ID     string `json:"id"`
	Number string `json:"bookingNumber,omitempty"`

	Status   BookingStatus `json:"status"`
	Schedule Schedule      `json:"schedule"`
	Trip     Trip          `json:"trip"`
	Contact  Contact       `json:"contact"`
	Payment  Payment       `json:"payment"`

	// Assignment is nil while the booking is unassigned.
	Assignment *Assignment `json:"assignment,omitempty"`

	// History is the append-only log of prior status transitions.
	History []StatusChange `json:"statusHistory,omitempty"`
}

// Schedule carries the pickup timing fields. PickupMillis is zero until the
// pickup is confirmed; PickupDate/PickupTime are the string fallbacks used
// when only the form inputs are known.
type Schedule struct {
	PickupMillis int64  `json:"pickupTimestamp,omitempty"`
	PickupDate   string `json:"pickupDate,omitempty"`
	PickupTime   string `json:"pickupTime,omitempty"`
	ReturnMillis int64  `json:"returnTimestamp,omitempty"`

	// DurationMin is the distance-derived trip duration estimate, zero when
	// no estimate has been computed.
	DurationMin int `json:"estimatedDurationMin,omitempty"`
}

// Trip describes the ride itself.
type Trip struct {
	Origin             string   `json:"origin,omitempty"`
	Destination        string   `json:"destination,omitempty"`
	OriginAddress      string   `json:"originAddress,omitempty"`
	DestinationAddress string   `json:"destinationAddress,omitempty"`
	Passengers         int      `json:"passengers,omitempty"`
	Direction          string   `json:"direction,omitempty"`
	Vehicles           []string `json:"vehicles,omitempty"`
	Baggage            string   `json:"baggage,omitempty"`
}

// Contact identifies the passenger who booked the ride.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Assignment records which driver a booking is assigned to.
type Assignment struct {
	DriverID       string `json:"driverId"`
	DriverName     string `json:"driverName,omitempty"`
	DriverPhone    string `json:"driverPhone,omitempty"`
	DriverEmail    string `json:"driverEmail,omitempty"`
	AssignedMillis int64  `json:"assignedAt,omitempty"`
}

// PaymentPreference selects when the passenger pays.
type PaymentPreference string

const (
	PayNow       PaymentPreference = "pay_now"
	PayOnArrival PaymentPreference = "pay_on_arrival"
)

// Payment carries amounts in minor currency units plus adjustment audit
// fields.
type Payment struct {
	Preference     PaymentPreference `json:"preference,omitempty"`
	BaseCents      int64             `json:"baseCents,omitempty"`
	GSTCents       int64             `json:"gstCents,omitempty"`
	TipCents       int64             `json:"tipCents,omitempty"`
	TotalCents     int64             `json:"totalCents,omitempty"`
	AdjustedBy     string            `json:"adjustedBy,omitempty"`
	AdjustedMillis int64             `json:"adjustedAt,omitempty"`
	AdjustReason   string            `json:"adjustReason,omitempty"`
}

// StatusChange is one entry in a booking's status history.
type StatusChange struct {
	Status     BookingStatus `json:"status"`
	Actor      string        `json:"actor,omitempty"`
	AtMillis   int64         `json:"at"`
	ReasonCode string        `json:"reasonCode,omitempty"`
	Note       string        `json:"note,omitempty"`
}

// Assigned reports whether the booking has a driver.
func (b Booking) Assigned() bool {
	return b.Assignment != nil && b.Assignment.DriverID != ""
}

// DriverID returns the assigned driver id or the empty string.
func (b Booking) DriverID() string {
	if b.Assignment == nil {
		return ""
	}
	return b.Assignment.DriverID
}

// pickupTimeLayouts are tried in order when resolving the string fallback.
var pickupTimeLayouts = []string{"15:04", "3:04 PM", "3:04PM", "15:04:05"}

// PickupInstant resolves the booking's pickup time. The confirmed epoch
// timestamp wins; otherwise PickupDate and PickupTime are parsed as a local
// time in loc. The second return is false when no pickup can be resolved,
// in which case the booking is skipped by timeline placement but remains in
// the booking set.
func (b Booking) PickupInstant(loc *time.Location) (time.Time, bool) {
	if b.Schedule.PickupMillis > 0 {
		return time.UnixMilli(b.Schedule.PickupMillis).In(loc), true
	}
	date := strings.TrimSpace(b.Schedule.PickupDate)
	clock := strings.TrimSpace(b.Schedule.PickupTime)
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	for _, layout := range pickupTimeLayouts {
		if t, err := time.ParseInLocation("2006-01-02 "+layout, date+" "+clock, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SearchBlob concatenates the fields matched by the board's free-text
// search: passenger name and phone, both address fields, origin and
// destination labels, and the booking number.
func (b Booking) SearchBlob() string {
	parts := []string{
		b.Number,
		b.Contact.Name,
		b.Contact.Phone,
		b.Trip.Origin,
		b.Trip.Destination,
		b.Trip.OriginAddress,
		b.Trip.DestinationAddress,
	}
	return strings.ToLower(strings.Join(parts, " "))
}
