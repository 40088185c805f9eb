package board

import (
	"context"
	"sync"
	"time"

	"github.com/shuttleops/dispatchboard/core/boarderr"
	"github.com/shuttleops/dispatchboard/core/events"
	"github.com/shuttleops/dispatchboard/core/feed"
	"github.com/shuttleops/dispatchboard/core/logger"
	"github.com/shuttleops/dispatchboard/core/metrics"
	"github.com/shuttleops/dispatchboard/core/model"
	"github.com/shuttleops/dispatchboard/internal/eventbus"
)

// Session holds one operator's board state: the current snapshot, active
// filters and view, and a degraded-mode banner when the feed fails. All
// derived state is recomputed from the latest full snapshot, so a repeated
// delivery leaves the board unchanged.
type Session struct {
	engine   Engine
	src      feed.Feed
	bus      eventbus.EventBus
	log      logger.Logger
	recorder metrics.BoardRecorder
	loc      *time.Location

	mu       sync.RWMutex
	day      time.Time
	filters  Filters
	view     View
	bookings []model.Booking
	drivers  []model.Driver
	current  Snapshot
	banner   error
}

// NewSession creates a session displaying the given day.
func NewSession(engine Engine, src feed.Feed, bus eventbus.EventBus, log logger.Logger, day time.Time) *Session {
	return &Session{
		engine: engine,
		src:    src,
		bus:    bus,
		log:    log,
		loc:    engine.loc,
		day:    day,
		view:   DefaultViews()[0],
	}
}

// SetRecorder configures the sink that records recomputation cycles.
func (s *Session) SetRecorder(r metrics.BoardRecorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

// Run subscribes to the feed and applies snapshots until the context ends.
func (s *Session) Run(ctx context.Context, scope feed.Scope) error {
	snapshots, err := s.src.Subscribe(ctx, scope)
	if err != nil {
		ferr := &boarderr.FeedError{Scope: scope.Fleet, Err: err}
		s.mu.Lock()
		s.banner = ferr
		s.mu.Unlock()
		feedErrors.Inc()
		s.log.Errorf("feed subscribe failed: %v", err)
		return ferr
	}
	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return nil
			}
			s.Apply(snap)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Apply ingests one feed snapshot and recomputes the board. An errored
// snapshot switches the board to a degraded empty state with a banner; the
// next good snapshot clears it.
func (s *Session) Apply(snap feed.Snapshot) {
	s.mu.Lock()
	if snap.Err != nil {
		s.banner = &boarderr.FeedError{Err: snap.Err}
		s.bookings = nil
		s.drivers = nil
		s.mu.Unlock()
		feedErrors.Inc()
		s.log.Errorf("feed error: %v", snap.Err)
		s.recompute()
		return
	}
	s.banner = nil
	bookings := append([]model.Booking(nil), snap.Bookings...)
	feed.SortByPickup(bookings, s.loc)
	s.bookings = bookings
	s.drivers = append([]model.Driver(nil), snap.Drivers...)
	s.mu.Unlock()

	s.recompute()
	if s.bus != nil {
		s.bus.Publish(events.SnapshotEvent{Snapshot: snap, Applied: time.Now()})
	}
}

// recompute rebuilds the derived board from the stored records.
func (s *Session) recompute() {
	s.mu.Lock()
	bookings, drivers := s.bookings, s.drivers
	day, filters, view := s.day, s.filters, s.view
	recorder := s.recorder
	s.mu.Unlock()

	start := time.Now()
	snap := s.engine.ComputeBoard(bookings, drivers, day, filters, view)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	recomputeLatency.Observe(elapsed.Seconds())
	queueSize.Set(float64(len(snap.UnassignedQueue)))
	snapshotsApplied.Inc()
	if recorder != nil {
		rec := metrics.BoardRecompute{
			Bookings:   len(bookings),
			Drivers:    len(drivers),
			Unassigned: len(snap.UnassignedQueue),
			Duration:   elapsed,
			Time:       time.Now(),
		}
		if err := recorder.RecordBoardRecompute(rec); err != nil {
			s.log.Errorf("board metrics error: %v", err)
		}
	}
}

// SetFilters replaces the active filters and recomputes.
func (s *Session) SetFilters(f Filters) {
	s.mu.Lock()
	s.filters = f
	s.mu.Unlock()
	s.recompute()
}

// SetView replaces the active view and recomputes.
func (s *Session) SetView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	s.recompute()
}

// SetDay moves the board to another calendar day and recomputes.
func (s *Session) SetDay(day time.Time) {
	s.mu.Lock()
	s.day = day
	s.mu.Unlock()
	s.recompute()
}

// Board returns the current derived board and the degraded-mode banner, if
// any.
func (s *Session) Board() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.banner
}

// Lookup returns the current records for the given booking ids, preserving
// request order and skipping unknown ids. The command processor captures
// pre-mutation assignments from these records.
func (s *Session) Lookup(ids []string) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID := make(map[string]model.Booking, len(s.bookings))
	for _, b := range s.bookings {
		byID[b.ID] = b
	}
	var out []model.Booking
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}
