package board

import (
	"strings"
	"time"

	"github.com/shuttleops/dispatchboard/core/classify"
	"github.com/shuttleops/dispatchboard/core/model"
)

// Filters is the dispatcher's transient, session-scoped selection state.
// Zero values mean "no constraint". Filters are not persisted unless the
// operator saves them as a view.
type Filters struct {
	Window  classify.PickupWindow
	Airport string
	Pax     classify.PaxBucket
	Luggage classify.LuggageBucket
	Search  string
}

// Match reports whether the booking passes every active filter. The pickup
// window needs both a resolvable pickup and the current time; bookings
// without a pickup fail an active window filter.
func (f Filters) Match(b model.Booking, now time.Time, loc *time.Location) bool {
	if f.Window != "" {
		pickup, ok := b.PickupInstant(loc)
		if !ok || classify.Window(pickup, now) != f.Window {
			return false
		}
	}
	if f.Airport != "" && !strings.EqualFold(classify.Airport(b.Trip), f.Airport) {
		return false
	}
	if f.Pax != "" && classify.Pax(b.Trip.Passengers) != f.Pax {
		return false
	}
	if f.Luggage != "" && classify.Luggage(b.Trip.Baggage) != f.Luggage {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(b.SearchBlob(), q) {
			return false
		}
	}
	return true
}
