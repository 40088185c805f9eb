// Package feed defines the contract with the live booking/driver store.
// The feed is the single source of truth: the board only dispatches intents
// and waits for the next snapshot to reconcile.
package feed

import (
	"context"
	"sort"
	"time"

	"github.com/shuttleops/dispatchboard/core/model"
)

// Scope selects which records a subscription covers.
type Scope struct {
	// Day is the local calendar day the board displays.
	Day time.Time
	// Fleet optionally narrows to one operating fleet.
	Fleet string
}

// Snapshot is one full delivery of current state. Every push carries the
// complete current record sets, so repeated delivery is idempotent.
type Snapshot struct {
	Bookings []model.Booking
	Drivers  []model.Driver
	Loading  bool
	Err      error
}

// Feed is a live subscription to booking and driver records.
type Feed interface {
	// Subscribe starts delivering snapshots for the scope until the context
	// is cancelled. The channel is closed when delivery stops.
	Subscribe(ctx context.Context, scope Scope) (<-chan Snapshot, error)

	// Refresh requests an immediate snapshot, used after a mutation to
	// reconcile optimistic state with server truth.
	Refresh()

	Close() error
}

// SortByPickup orders bookings ascending by resolvable pickup instant,
// keeping feed order for ties and for bookings without a pickup. The
// placement engine assumes this ordering, so it is enforced locally rather
// than trusted from upstream.
func SortByPickup(bookings []model.Booking, loc *time.Location) {
	sort.SliceStable(bookings, func(i, j int) bool {
		ti, oki := bookings[i].PickupInstant(loc)
		tj, okj := bookings[j].PickupInstant(loc)
		if !oki || !okj {
			return oki && !okj
		}
		return ti.Before(tj)
	})
}
