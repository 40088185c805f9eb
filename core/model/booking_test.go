package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPickupInstantPrefersTimestamp(t *testing.T) {
	loc := time.UTC
	b := Booking{Schedule: Schedule{
		PickupMillis: time.Date(2026, 8, 29, 14, 30, 0, 0, loc).UnixMilli(),
		PickupDate:   "2026-08-29",
		PickupTime:   "09:00",
	}}
	got, ok := b.PickupInstant(loc)
	if !ok {
		t.Fatalf("pickup not resolved")
	}
	if got.Hour() != 14 || got.Minute() != 30 {
		t.Fatalf("timestamp should win over string fields, got %v", got)
	}
}

func TestPickupInstantStringFallback(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		clock string
		hour  int
		min   int
	}{
		{"09:15", 9, 15},
		{"3:04 PM", 15, 4},
		{"3:04PM", 15, 4},
		{"23:59:30", 23, 59},
	}
	for _, c := range cases {
		b := Booking{Schedule: Schedule{PickupDate: "2026-08-29", PickupTime: c.clock}}
		got, ok := b.PickupInstant(loc)
		if !ok {
			t.Fatalf("%q: pickup not resolved", c.clock)
		}
		if got.Hour() != c.hour || got.Minute() != c.min {
			t.Fatalf("%q: got %v", c.clock, got)
		}
		if got.Year() != 2026 || got.Month() != 8 || got.Day() != 29 {
			t.Fatalf("%q: wrong date %v", c.clock, got)
		}
	}
}

func TestPickupInstantUnresolvable(t *testing.T) {
	cases := []Schedule{
		{},
		{PickupDate: "2026-08-29"},
		{PickupTime: "09:00"},
		{PickupDate: "2026-08-29", PickupTime: "quarter past nine"},
	}
	for i, s := range cases {
		if _, ok := (Booking{Schedule: s}).PickupInstant(time.UTC); ok {
			t.Fatalf("case %d: expected unresolved", i)
		}
	}
}

func TestAssignedAndDriverID(t *testing.T) {
	var b Booking
	if b.Assigned() || b.DriverID() != "" {
		t.Fatalf("zero booking should be unassigned")
	}
	b.Assignment = &Assignment{}
	if b.Assigned() {
		t.Fatalf("empty driver id is not an assignment")
	}
	b.Assignment = &Assignment{DriverID: "d1", DriverName: "Ana"}
	if !b.Assigned() || b.DriverID() != "d1" {
		t.Fatalf("assignment not reported")
	}
}

func TestSearchBlob(t *testing.T) {
	b := Booking{
		Number:  "BK-1042",
		Contact: Contact{Name: "Maria Lopez", Phone: "555-0101"},
		Trip: Trip{
			Origin:             "Downtown",
			Destination:        "Airport (YYC)",
			OriginAddress:      "101 Main St",
			DestinationAddress: "2000 Airport Rd NE",
		},
	}
	blob := b.SearchBlob()
	for _, want := range []string{"bk-1042", "maria lopez", "555-0101", "airport (yyc)", "101 main st"} {
		if !strings.Contains(blob, want) {
			t.Fatalf("blob missing %q: %s", want, blob)
		}
	}
	if blob != strings.ToLower(blob) {
		t.Fatalf("blob must be lowercased")
	}
}

func TestBookingStatusJSON(t *testing.T) {
	raw, err := json.Marshal(Booking{ID: "b1", Status: StatusEnRoute})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"status":"en_route"`) {
		t.Fatalf("status not encoded as wire string: %s", raw)
	}

	var decoded Booking
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Status != StatusEnRoute {
		t.Fatalf("status not decoded: %v", decoded.Status)
	}

	var unknown Booking
	if err := json.Unmarshal([]byte(`{"id":"b2","status":"teleporting"}`), &unknown); err != nil {
		t.Fatalf("unmarshal unknown: %v", err)
	}
	if unknown.Status != StatusUnknown {
		t.Fatalf("unrecognized status should decode as unknown, got %v", unknown.Status)
	}
}
