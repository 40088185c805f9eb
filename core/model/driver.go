package model

// Driver is an assignable operator resource. The directory is sourced
// externally and treated as read-mostly reference data.
type Driver struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Vehicle string `json:"vehicle,omitempty"`

	// Optional duty window, minutes from local midnight. Both zero means
	// no declared shift.
	ShiftStartMin int `json:"shiftStartMin,omitempty"`
	ShiftEndMin   int `json:"shiftEndMin,omitempty"`

	// Compliance holds opaque roster metadata the board displays but never
	// interprets.
	Compliance map[string]string `json:"compliance,omitempty"`

	// Synthesized marks a stand-in built from a booking that referenced a
	// driver id missing from the roster.
	Synthesized bool `json:"-"`
}

// SynthesizeDriver builds a minimal Driver stub from a booking's assignment
// fields so the board never drops a trip with an unrecognised assignee.
func SynthesizeDriver(a Assignment) Driver {
	name := a.DriverName
	if name == "" {
		name = a.DriverID
	}
	return Driver{
		ID:          a.DriverID,
		Name:        name,
		Phone:       a.DriverPhone,
		Email:       a.DriverEmail,
		Synthesized: true,
	}
}
