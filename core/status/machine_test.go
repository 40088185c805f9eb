package status

import (
	"errors"
	"testing"

	"github.com/shuttleops/dispatchboard/core/boarderr"
	"github.com/shuttleops/dispatchboard/core/model"
)

func TestCanTransition_ForwardBackwardCancel(t *testing.T) {
	cases := []struct {
		from, to model.BookingStatus
		ok       bool
	}{
		{model.StatusPending, model.StatusAwaitingPayment, true},
		{model.StatusAwaitingPayment, model.StatusPending, true},
		{model.StatusConfirmed, model.StatusAssigned, true},
		{model.StatusAssigned, model.StatusConfirmed, true},
		{model.StatusOnTrip, model.StatusCompleted, true},
		{model.StatusEnRoute, model.StatusCancelled, true},
		{model.StatusPending, model.StatusConfirmed, false},
		{model.StatusConfirmed, model.StatusEnRoute, false},
		{model.StatusCompleted, model.StatusPending, false},
		{model.StatusCancelled, model.StatusPending, false},
		{model.StatusUnknown, model.StatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []model.BookingStatus{model.StatusCompleted, model.StatusCancelled} {
		if next := AllowedNext(s); len(next) != 0 {
			t.Errorf("%s should be terminal, got transitions %v", s, next)
		}
	}
}

func TestRequiresReason(t *testing.T) {
	if !RequiresReason(model.StatusConfirmed, model.StatusCancelled) {
		t.Errorf("cancelling should always require a reason")
	}
	if !RequiresReason(model.StatusAssigned, model.StatusConfirmed) {
		t.Errorf("un-confirming an assignment should require a reason")
	}
	if !RequiresReason(model.StatusEnRoute, model.StatusAssigned) {
		t.Errorf("reverting en-route should require a reason")
	}
	if RequiresReason(model.StatusConfirmed, model.StatusAssigned) {
		t.Errorf("assigning should not require a reason")
	}
}

func TestValidate_MissingReason(t *testing.T) {
	err := Validate(model.StatusOnTrip, model.StatusArrived, "")
	var verr *boarderr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if err := Validate(model.StatusOnTrip, model.StatusArrived, "wrong_stop"); err != nil {
		t.Fatalf("reason code supplied, want nil error, got %v", err)
	}
}

func TestValidateBulk_FailsClosed(t *testing.T) {
	sel := []model.Booking{
		{ID: "b1", Status: model.StatusEnRoute},
		{ID: "b2", Status: model.StatusEnRoute},
	}
	// en_route -> assigned is a sensitive revert for both bookings.
	if err := ValidateBulk(sel, model.StatusAssigned, ""); err == nil {
		t.Fatalf("expected bulk validation to demand a reason code")
	}
	if err := ValidateBulk(sel, model.StatusAssigned, "dispatch_error"); err != nil {
		t.Fatalf("unexpected error with reason code: %v", err)
	}
}

func TestValidateBulk_MixedSelection(t *testing.T) {
	// Only b2's pair is sensitive, but the whole selection is gated.
	sel := []model.Booking{
		{ID: "b1", Status: model.StatusConfirmed},
		{ID: "b2", Status: model.StatusEnRoute},
	}
	if !BulkRequiresReason(sel, model.StatusAssigned) {
		t.Fatalf("one sensitive member should gate the whole selection")
	}
	if err := ValidateBulk(sel, model.StatusAssigned, ""); err == nil {
		t.Fatalf("bulk revert without reason must be rejected for the whole selection")
	}
}

func TestValidateBulk_RejectsIllegalMember(t *testing.T) {
	sel := []model.Booking{
		{ID: "b1", Status: model.StatusConfirmed},
		{ID: "b2", Status: model.StatusCompleted},
	}
	if err := ValidateBulk(sel, model.StatusAssigned, ""); err == nil {
		t.Fatalf("selection containing a terminal booking must be rejected")
	}
}
