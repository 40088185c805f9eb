package command

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/shuttleops/dispatchboard/core/boarderr"
)

// NotifyOptions selects who is notified about an assignment change. The
// actual SMS/email senders live behind the mutation API.
type NotifyOptions struct {
	Driver    bool `json:"driver"`
	Passenger bool `json:"passenger"`
}

// AssignRequest assigns or, with an empty DriverID, unassigns bookings.
type AssignRequest struct {
	BookingIDs  []string      `json:"bookingIds" validate:"required,min=1,dive,required"`
	DriverID    string        `json:"driverId"`
	DriverName  string        `json:"driverName"`
	DriverPhone string        `json:"driverPhone"`
	DriverEmail string        `json:"driverEmail"`
	Notify      NotifyOptions `json:"notify"`
}

// StatusRequest moves one booking to a new status.
type StatusRequest struct {
	BookingID  string `json:"bookingId" validate:"required"`
	Status     string `json:"status" validate:"required"`
	ReasonCode string `json:"reasonCode,omitempty"`
	Note       string `json:"note,omitempty"`
}

// PricingRequest adjusts one booking's pricing. Amounts are minor currency
// units and must be non-negative; a reason code is always required.
type PricingRequest struct {
	BookingID             string `json:"bookingId" validate:"required"`
	BaseCents             int64  `json:"baseCents" validate:"gte=0"`
	GSTCents              int64  `json:"gstCents" validate:"gte=0"`
	TipCents              int64  `json:"tipCents" validate:"gte=0"`
	TotalCents            int64  `json:"totalCents" validate:"gte=0"`
	ReasonCode            string `json:"reasonCode" validate:"required"`
	ReasonNote            string `json:"reasonNote,omitempty"`
	RequireSecondApproval bool   `json:"requireSecondApproval,omitempty"`
}

// SMSRequest sends one message to the passengers or drivers of a selection.
type SMSRequest struct {
	BookingIDs []string `json:"bookingIds" validate:"required,min=1,dive,required"`
	Message    string   `json:"message" validate:"required"`
	Recipient  string   `json:"recipient" validate:"oneof=passenger driver"`
}

// SMSReceipt reports how many recipients a bulk SMS reached.
type SMSReceipt struct {
	TotalRecipients int `json:"totalRecipients"`
}

// MutationAPI is the external mutation surface. All calls are fallible and
// none of them touch local derived state; reconciliation happens through
// the feed's next snapshot.
type MutationAPI interface {
	AssignDriver(ctx context.Context, req AssignRequest) error
	UpdateBookingStatus(ctx context.Context, req StatusRequest) error
	UpdateBookingPricing(ctx context.Context, req PricingRequest) error
	SendBulkSMS(ctx context.Context, req SMSRequest) (SMSReceipt, error)
}

var validate = validator.New()

// checkRequest translates struct-tag violations into ValidationErrors so
// they are rejected before any network call.
func checkRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return boarderr.NewValidation(errs[0].Field(), "failed %s constraint", errs[0].Tag())
	}
	return boarderr.NewValidation("", "%v", err)
}
