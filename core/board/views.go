package board

import (
	"github.com/shuttleops/dispatchboard/core/model"
)

// View is a named booking-visibility preset. Zero-valued fields mean "any".
// Views come from the built-in defaults plus presets loaded from the saved
// views file; the board composes them but does not own their persistence.
type View struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Scope optionally names the fleet the view subscribes to. It selects
	// the feed scope and does not filter individual bookings.
	Scope  string `json:"scope,omitempty"`
	Status string `json:"status,omitempty"`

	// Driver filters by assignment: "", "any" (no constraint),
	// "unassigned", "assigned", or a concrete driver id.
	Driver string `json:"driver,omitempty"`

	// Payment filters by preference: "", "pay_now" or "pay_on_arrival".
	Payment string `json:"payment,omitempty"`
}

// DefaultViews are always present; saved presets are appended after them.
func DefaultViews() []View {
	return []View{
		{ID: "all", Name: "All bookings"},
		{ID: "unassigned", Name: "Unassigned", Driver: "unassigned"},
		{ID: "pay-on-arrival", Name: "Pay on arrival", Payment: string(model.PayOnArrival)},
		{ID: "active", Name: "In progress", Status: "en_route"},
	}
}

// ComposeViews merges the defaults with saved presets. A preset sharing an
// id with a default replaces it.
func ComposeViews(saved []View) []View {
	views := DefaultViews()
	for _, s := range saved {
		replaced := false
		for i, v := range views {
			if v.ID == s.ID {
				views[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			views = append(views, s)
		}
	}
	return views
}

// Match reports whether the booking is visible under the view.
func (v View) Match(b model.Booking) bool {
	if v.Status != "" && b.Status.String() != v.Status {
		return false
	}
	switch v.Driver {
	case "", "any":
	case "unassigned":
		if b.Assigned() {
			return false
		}
	case "assigned":
		if !b.Assigned() {
			return false
		}
	default:
		if b.DriverID() != v.Driver {
			return false
		}
	}
	if v.Payment != "" && string(b.Payment.Preference) != v.Payment {
		return false
	}
	return true
}
