package feed

import (
	"testing"
	"time"

	"github.com/shuttleops/dispatchboard/core/model"
)

func TestSortByPickupOrdersByInstant(t *testing.T) {
	loc := time.UTC
	at := func(h, m int) int64 {
		return time.Date(2026, 8, 29, h, m, 0, 0, loc).UnixMilli()
	}
	bookings := []model.Booking{
		{ID: "late", Schedule: model.Schedule{PickupMillis: at(16, 0)}},
		{ID: "early", Schedule: model.Schedule{PickupMillis: at(8, 30)}},
		{ID: "string", Schedule: model.Schedule{PickupDate: "2026-08-29", PickupTime: "12:00"}},
	}
	SortByPickup(bookings, loc)
	want := []string{"early", "string", "late"}
	for i, id := range want {
		if bookings[i].ID != id {
			t.Fatalf("position %d: got %s want %s", i, bookings[i].ID, id)
		}
	}
}

func TestSortByPickupUnresolvableLast(t *testing.T) {
	loc := time.UTC
	bookings := []model.Booking{
		{ID: "no-pickup-1"},
		{ID: "timed", Schedule: model.Schedule{PickupMillis: time.Now().UnixMilli()}},
		{ID: "no-pickup-2"},
	}
	SortByPickup(bookings, loc)
	if bookings[0].ID != "timed" {
		t.Fatalf("resolvable booking should sort first: %v", bookings)
	}
	if bookings[1].ID != "no-pickup-1" || bookings[2].ID != "no-pickup-2" {
		t.Fatalf("unresolvable bookings must keep feed order: %v", bookings)
	}
}

func TestSortByPickupStableForTies(t *testing.T) {
	loc := time.UTC
	ts := time.Date(2026, 8, 29, 9, 0, 0, 0, loc).UnixMilli()
	bookings := []model.Booking{
		{ID: "a", Schedule: model.Schedule{PickupMillis: ts}},
		{ID: "b", Schedule: model.Schedule{PickupMillis: ts}},
		{ID: "c", Schedule: model.Schedule{PickupMillis: ts}},
	}
	SortByPickup(bookings, loc)
	if bookings[0].ID != "a" || bookings[1].ID != "b" || bookings[2].ID != "c" {
		t.Fatalf("tie order changed: %v", bookings)
	}
}
